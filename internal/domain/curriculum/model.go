package curriculum

import (
	"fmt"

	"github.com/utamadigital/30-hari-new/internal/domain/access"
)

// AgeGroup is a selectable child age band. It only changes content hinting.
type AgeGroup struct {
	ID    string
	Label string
	Hint  string
}

// DefaultAgeGroupID is selected when a calendar is first opened.
const DefaultAgeGroupID = "5-6"

var ageGroups = []AgeGroup{
	{ID: "3-4", Label: "3–4 tahun", Hint: "lebih banyak mewarnai & motorik"},
	{ID: "5-6", Label: "5–6 tahun", Hint: "mulai tracing & berhitung sederhana"},
	{ID: "7-8", Label: "7–8 tahun", Hint: "lebih fokus latihan & kemandirian"},
}

// AgeGroups returns the age groups in display order.
func AgeGroups() []AgeGroup {
	out := make([]AgeGroup, len(ageGroups))
	copy(out, ageGroups)
	return out
}

// FindAgeGroup looks up an age group by id.
func FindAgeGroup(id string) (AgeGroup, bool) {
	for _, g := range ageGroups {
		if g.ID == id {
			return g, true
		}
	}
	return AgeGroup{}, false
}

// Worksheet titles per track. Lists shorter than the calendar cycle.
var (
	islamiTitles = []string{
		"Huruf Hijaiyah",
		"Mengenal Harakat",
		"Angka dalam Bahasa Arab",
		"Kalimat Thayyibah",
		"Doa-doa Pendek",
		"Hadits-hadits Pendek",
		"Surat-surat Pendek",
		"Asmaul Husna",
		"Hari Besar Islam",
		"Bulan Hijriyah",
		"Rukun Iman dan Islam",
		"Sifat-sifat Allah",
		"Nabi dan Rasul",
		"Nama Malaikat",
		"Sholat dan Wudhu",
		"Puasa",
		"Haji dan Umroh",
		"Makanan Halal",
		"Najis dalam Islam",
		"Perbuatan Terpuji",
		"Hari Kiamat",
		"Surga Neraka",
		"Lain-lain (Islami)",
	}

	umumTitles = []string{
		"Seri Alfabet",
		"Seri Berhitung",
		"Seri Benda di Sekitar Kita",
		"Seri Buah-buahan",
		"Seri Sayur-sayuran",
		"Seri Hewan",
		"Seri Kendaraan",
		"Seri Profesi",
		"Seri Mengenal Anggota Tubuh",
		"Seri Mengenal Tempat",
		"Seri Mengenal Waktu",
		"Seri Dinosaurus",
	}

	bonusTitles = []string{
		"100 Hari Belajar Matematika",
		"Alphabet – Tracing Line",
		"Berhitung TK",
		"Bilingual Activity (ENG)",
		"Body System (ENG)",
		"Crossword (ENG)",
		"Coloring Books Random (ENG)",
		"Tracing Activities (ENG)",
		"Worksheets for Kindergarten (ENG)",
		"Gunting dan Tempel",
		"Mencocokkan",
		"Menghubungkan Angka",
		"Mewarnai Berdasarkan Angka",
		"Mewarnai (Komplit)",
	}
)

// Resource is a hint about the material used on a given day.
type Resource struct {
	Label string
	Note  string
}

// DayPlan is the display content of one calendar day.
type DayPlan struct {
	Title     string
	Subtitle  string
	Focus     string
	Resources []Resource
}

// PlanFor builds the content shown for a day.
// PRE: day is within the calendar range
// POST: Returns the same plan for the same inputs
// INVARIANT: Titles cycle through the category list; repeats past its length are expected
func PlanFor(day int, ageGroupID string, c access.Category) DayPlan {
	return DayPlan{
		Title:    pickCycled(titlesFor(c), day),
		Subtitle: fmt.Sprintf("Hari %d • %s", day, ageQualifier(ageGroupID)),
		Focus:    focusFor(c),
		Resources: []Resource{
			{Label: "Worksheet/PDF", Note: "(gunakan file sesuai judul di atas)"},
			{Label: "Durasi", Note: "10–20 menit"},
		},
	}
}

func titlesFor(c access.Category) []string {
	switch c {
	case access.CategoryIslami:
		return islamiTitles
	case access.CategoryUmum:
		return umumTitles
	default:
		return bonusTitles
	}
}

// pickCycled returns list[(day-1) mod len]. Days below 1 wrap to the start.
func pickCycled(list []string, day int) string {
	if len(list) == 0 {
		return ""
	}
	i := (day - 1) % len(list)
	if i < 0 {
		i += len(list)
	}
	return list[i]
}

// ageQualifier falls back to the most independent variant for unknown ids.
func ageQualifier(ageGroupID string) string {
	switch ageGroupID {
	case "3-4":
		return "(ringan & fun)"
	case "5-6":
		return "(latihan bertahap)"
	default:
		return "(lebih mandiri)"
	}
}

func focusFor(c access.Category) string {
	switch c {
	case access.CategoryIslami:
		return "Fokus: nilai & kebiasaan baik"
	case access.CategoryUmum:
		return "Fokus: kognitif & pengetahuan"
	default:
		return "Bonus: variasi aktivitas"
	}
}
