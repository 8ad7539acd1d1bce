package search

import "sort"

// DefaultSequentialCategories lists the categories whose chunks are slices of
// one longer document and must be expanded to the whole chain on a hit.
var DefaultSequentialCategories = []string{
	"TenagaPendidik_Detail",
	"Misi_Detail",
	"Sejarah_Detail",
	"Visi_Detail",
	"Sekolah_DeskripsiProfil",
	"InformasiTambahan_Akreditasi",
	"InformasiTambahan_BiayaPendaftaran",
	"InformasiTambahan_Fasilitas",
	"InformasiTambahan_JamOperasionalSekolah",
	"InformasiTambahan_KegiatanEkstrakurikuler",
	"InformasiTambahan_KontakPenting",
	"InformasiTambahan_PendaftaranSiswaBaru",
	"InformasiTambahan_PrestasiSekolah",
	"InformasiTambahan_ProgramBeasiswa",
	"InformasiTambahan_TataTertibSekolah",
	"InformasiTambahan_TransportasiUmum",
	"InformasiTambahan_SeragamSekolah",
}

// Classifier decides whether a category is sequential or standalone.
type Classifier struct {
	sequential map[string]struct{}
}

// NewClassifier builds a Classifier; nil categories selects the defaults.
func NewClassifier(categories []string) *Classifier {
	if categories == nil {
		categories = DefaultSequentialCategories
	}
	c := &Classifier{sequential: make(map[string]struct{}, len(categories))}
	for _, cat := range categories {
		c.sequential[cat] = struct{}{}
	}
	return c
}

// IsSequential reports whether hits in category expand to their chain.
func (c *Classifier) IsSequential(category string) bool {
	_, ok := c.sequential[category]
	return ok
}

// Categories returns the sequential categories, sorted.
func (c *Classifier) Categories() []string {
	out := make([]string, 0, len(c.sequential))
	for cat := range c.sequential {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}
