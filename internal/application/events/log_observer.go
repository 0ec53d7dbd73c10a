package events

import "go.uber.org/zap"

// LogObserver writes every event as a structured "calendar_event" log line.
type LogObserver struct {
	log *zap.Logger
}

// NewLogObserver creates an observer logging to log. A nil logger discards.
func NewLogObserver(log *zap.Logger) *LogObserver {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogObserver{log: log}
}

// Notify implements Observer.
func (l *LogObserver) Notify(e Event) {
	fields := []zap.Field{zap.String("event", string(e.Kind))}
	if e.Tier != "" {
		fields = append(fields, zap.String("tier", e.Tier))
	}
	if e.Category != "" {
		fields = append(fields, zap.String("category", e.Category))
	}
	if e.AgeGroupID != "" {
		fields = append(fields, zap.String("age_group", e.AgeGroupID))
	}
	if e.Day != 0 {
		fields = append(fields, zap.Int("day", e.Day))
	}
	if e.Kind == KindCompletionToggled {
		fields = append(fields, zap.Bool("completed", e.Completed))
	}
	if e.LockReason != "" {
		fields = append(fields, zap.String("lock_reason", e.LockReason))
	}
	if e.StartDate != "" {
		fields = append(fields, zap.String("start_date", e.StartDate))
	}
	l.log.Info("calendar_event", fields...)
}
