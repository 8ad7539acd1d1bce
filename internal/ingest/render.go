package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"medikacom/kgrag/internal/graph"
)

const notAvailable = "N/A"

// section is one conceptual node and the chains hanging off it.
type section struct {
	Name        string
	Label       graph.Label
	KeyProperty string
	Key         string
	Props       graph.Properties
	// Link is the relationship from the school node; empty for the school itself.
	Link   graph.RelType
	Chains []chainPlan
}

// chainPlan is the text of one chain before chunking.
type chainPlan struct {
	Text     string
	Prefix   string
	Category string
	Anchor   graph.RelType
}

// profileSection renders the school node and its description chain.
func profileSection(p Profil) section {
	props := graph.Properties{}
	var parts []string
	add := func(key string, raw json.RawMessage) {
		v, ok := propValue(raw)
		if !ok {
			return
		}
		props[key] = v
		if key != "nama" {
			parts = append(parts, fmt.Sprintf("%s: %s", humanize(key), renderRaw(raw)))
		}
	}
	for _, f := range p.Fields {
		if f.Key == "lokasi_lengkap" && isObject(f.Value) {
			var sub Ordered[json.RawMessage]
			if err := json.Unmarshal(f.Value, &sub); err == nil {
				for _, s := range sub {
					add("lokasi_"+s.Key, s.Value)
				}
				continue
			}
		}
		add(f.Key, f.Value)
	}
	props["nama"] = p.Nama

	text := fmt.Sprintf("Nama Sekolah: %s. ", p.Nama) + strings.Join(parts, ". ")
	return section{
		Name:        "profil_sekolah",
		Label:       graph.LabelSekolah,
		KeyProperty: "nama",
		Key:         p.Nama,
		Props:       props,
		Chains: []chainPlan{{
			Text: text, Prefix: "Deskripsi Profil Sekolah",
			Category: "Sekolah_DeskripsiProfil", Anchor: graph.RelHasDescriptionChunk,
		}},
	}
}

// plan renders every present section of doc except the profile, in
// ingestion order. Informasi tambahan keys that cannot form a relationship
// name, or whose anchor an earlier key already uses, are returned in skipped.
func plan(doc *Document) (sections []section, skipped []string) {
	category := func(name string, label graph.Label, key string, link graph.RelType, chains ...chainPlan) {
		var kept []chainPlan
		for _, c := range chains {
			if strings.TrimSpace(c.Text) != "" {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			return
		}
		sections = append(sections, section{
			Name: name, Label: label, KeyProperty: "nama_kategori", Key: key, Link: link, Chains: kept,
		})
	}
	content := func(text, prefix, cat string) chainPlan {
		return chainPlan{Text: text, Prefix: prefix, Category: cat, Anchor: graph.RelHasContentChunk}
	}

	if len(doc.Sejarah) > 0 {
		category("sejarah", graph.LabelSejarah, "Sejarah Umum Sekolah", graph.RelHasHistory,
			content(strings.Join(doc.Sejarah, " "), "Sejarah Sekolah", "Sejarah_Detail"))
	}

	if vm := doc.VisiMisi; vm != nil {
		var misi []string
		for i, m := range vm.Misi {
			misi = append(misi, fmt.Sprintf("Poin Misi %d: %s", i+1, m))
		}
		category("visi_dan_misi", graph.LabelVisiMisi, "Visi dan Misi Sekolah", graph.RelHasVisiMisi,
			chainPlan{Text: vm.Visi, Prefix: "Visi Sekolah", Category: "Visi_Detail", Anchor: graph.RelHasVisiChunk},
			chainPlan{Text: strings.Join(misi, " "), Prefix: "Misi Sekolah", Category: "Misi_Detail", Anchor: graph.RelHasMisiChunk},
		)
	}

	if len(doc.PengetahuanUmum) > 0 {
		category("pengetahuan_umum", graph.LabelPengetahuanUmum, "Pengetahuan Umum Jurusan", graph.RelHasGeneralKnowledge,
			content(renderPengetahuan(doc.PengetahuanUmum), "Pengetahuan Umum tentang Jurusan", "PengetahuanUmum_Detail"))
	}

	if doc.BiayaPendidikan != nil {
		category("biaya_pendidikan", graph.LabelBiayaPendidikan, "Biaya Pendidikan Sekolah", graph.RelHasTuitionInfo,
			content(renderBiayaPendidikan(doc.BiayaPendidikan), "Rincian Biaya Pendidikan", "BiayaPendidikan_Detail"))
	}

	if doc.BiayaSeragam != nil {
		category("biaya_seragam", graph.LabelBiayaSeragam, "Biaya Seragam Sekolah", graph.RelHasUniformCostInfo,
			content(renderBiayaSeragam(doc.BiayaSeragam), "Rincian Biaya Seragam", "BiayaSeragam_Detail"))
	}

	if doc.KelasIndustri != nil {
		category("kelas_industri", graph.LabelKelasIndustri, "Kelas Industri Sekolah", graph.RelHasIndustryClass,
			content(renderKelasIndustri(doc.KelasIndustri), "Program Kelas Industri", "KelasIndustri_Detail"))
	}

	if len(doc.TenagaPendidik) > 0 {
		category("tenaga_pendidik_dan_staf", graph.LabelTenagaPendidik, "Tenaga Pendidik dan Staf Sekolah", graph.RelHasStaff,
			content(strings.Join(doc.TenagaPendidik, ". "), "Daftar Tenaga Pendidik dan Staf", "TenagaPendidik_Detail"))
	}

	if len(doc.Ekstrakurikuler) > 0 {
		category("ekstrakurikuler", graph.LabelEkstrakurikuler, "Ekstrakurikuler Sekolah", graph.RelHasExtracurriculars,
			content(strings.Join(doc.Ekstrakurikuler, ", "), "Daftar Ekstrakurikuler", "Ekstrakurikuler_Detail"))
	}

	if len(doc.InformasiTambahan) > 0 {
		var chains []chainPlan
		taken := make(map[graph.RelType]string)
		for _, e := range doc.InformasiTambahan {
			text := renderRaw(e.Value)
			if strings.TrimSpace(text) == "" {
				continue
			}
			prefix := humanize(e.Key)
			anchor, err := graph.ChunkRelType(prefix)
			if err != nil {
				skipped = append(skipped, e.Key)
				continue
			}
			// Two keys sharing an anchor would purge each other's chain.
			if _, dup := taken[anchor]; dup {
				skipped = append(skipped, e.Key)
				continue
			}
			taken[anchor] = e.Key
			chains = append(chains, chainPlan{
				Text:     text,
				Prefix:   prefix,
				Category: "InformasiTambahan_" + pascal(e.Key),
				Anchor:   anchor,
			})
		}
		category("informasi_tambahan", graph.LabelInformasiTambahan, "Informasi Tambahan Sekolah", graph.RelHasAdditionalInfo, chains...)
	}

	if len(doc.PanduanPPDB) > 0 {
		category("panduan_ppdb", graph.LabelPanduanPPDB, "Panduan PPDB Sekolah", graph.RelHasPPDBGuide,
			content(renderPPDB(doc.PanduanPPDB), "Panduan Pendaftaran Peserta Didik Baru (PPDB)", "PanduanPPDB_Detail"))
	}
	return sections, skipped
}

func renderPengetahuan(jurusan Ordered[Jurusan]) string {
	parts := make([]string, 0, len(jurusan))
	for _, j := range jurusan {
		d := j.Value
		parts = append(parts, fmt.Sprintf(
			"Untuk jurusan %s, deskripsinya adalah: %s. Prospek karier meliputi: %s. Pilihan kuliah lanjutan antara lain: %s. Fakta menarik: %s.",
			j.Key, d.Deskripsi, strings.Join(d.Karier, ", "), strings.Join(d.KuliahLanjutan, ", "), d.FunFact))
	}
	return strings.Join(parts, " ")
}

func renderCicilan(cicilan []Cicilan) string {
	if len(cicilan) == 0 {
		return ""
	}
	parts := make([]string, len(cicilan))
	for i, c := range cicilan {
		parts[i] = fmt.Sprintf("pembayaran tahap %s sebesar Rp %s dengan batas pembayaran %s",
			c.Tahap, c.Jumlah, orNA(c.BatasPembayaran))
	}
	return fmt.Sprintf("Skema pembayaran dapat dicicil: %s.", strings.Join(parts, ", dan "))
}

func renderBiayaPendidikan(b *BiayaPendidikan) string {
	var parts []string
	if b.TahunAjaran != "" {
		parts = append(parts, fmt.Sprintf("Informasi biaya pendidikan untuk tahun ajaran %s.", b.TahunAjaran))
	}
	if b.CatatanUmum != "" {
		parts = append(parts, b.CatatanUmum)
	}
	for _, k := range b.RincianPerKelompok {
		kp := []string{fmt.Sprintf("Untuk kelompok keahlian %s, total biaya tahun pertama adalah Rp %s. Biaya ini sudah termasuk: %s.",
			orNA(k.KelompokKeahlian), k.TotalBiayaTahunPertama, strings.Join(k.Termasuk, ", "))}
		if c := renderCicilan(k.SkemaCicilan); c != "" {
			kp = append(kp, c)
		}
		parts = append(parts, strings.Join(kp, " "))
	}
	if nt := b.NonTunai; nt != nil && (len(nt.TransferBank) > 0 || nt.QRIS != "") {
		mp := []string{"Metode pembayaran non-tunai yang tersedia adalah:"}
		for _, t := range nt.TransferBank {
			mp = append(mp, fmt.Sprintf("Transfer Bank %s ke nomor rekening %s atas nama %s.", t.Bank, t.NomorRekening, t.AtasNama))
		}
		if nt.QRIS != "" {
			mp = append(mp, fmt.Sprintf("Pembayaran melalui QRIS juga tersedia, QR code dapat dilihat pada link %s.", nt.QRIS))
		}
		parts = append(parts, strings.Join(mp, " "))
	}
	return strings.Join(parts, " ")
}

func renderBiayaSeragam(s *BiayaSeragam) string {
	var parts []string
	if s.TahunAjaran != "" {
		parts = append(parts, fmt.Sprintf("Informasi biaya seragam untuk tahun ajaran %s.", s.TahunAjaran))
	}
	groups := []struct {
		gender string
		rows   []KelompokSeragam
	}{{"Pria", s.Pria}, {"Wanita Muslim", s.WanitaMuslim}}
	for _, g := range groups {
		for _, k := range g.rows {
			items := make([]string, len(k.Rincian))
			for i, it := range k.Rincian {
				items[i] = fmt.Sprintf("%s seharga Rp %s", it.Item, it.Biaya)
			}
			parts = append(parts, fmt.Sprintf("Biaya seragam untuk %s kelompok jurusan %s adalah Rp %s dengan rincian: %s.",
				g.gender, orNA(k.KelompokJurusan), k.Total, strings.Join(items, ", ")))
		}
	}
	return strings.Join(parts, " ")
}

func renderKelasIndustri(k *KelasIndustri) string {
	var parts []string
	if k.Catatan != "" {
		parts = append(parts, fmt.Sprintf("Catatan umum kelas industri: %s.", k.Catatan))
	}
	for _, p := range k.Program {
		pp := []string{fmt.Sprintf("Program kelas industri bernama '%s' ditujukan untuk jurusan %s. Kuota yang tersedia adalah %s.",
			orNA(p.NamaProgram), strings.Join(p.JurusanTerkait, ", "), orNA(string(p.Kuota)))}
		if p.TotalBiayaTahunPertama != 0 {
			pp = append(pp, fmt.Sprintf("Total biaya tahun pertama adalah Rp %s.", p.TotalBiayaTahunPertama))
		}
		if len(p.BiayaTermasuk) > 0 {
			pp = append(pp, fmt.Sprintf("Biaya tersebut sudah termasuk: %s.", strings.Join(p.BiayaTermasuk, ", ")))
		}
		if len(p.Manfaat) > 0 {
			pp = append(pp, fmt.Sprintf("Manfaat yang didapat antara lain: %s.", strings.Join(p.Manfaat, ". ")))
		}
		if c := renderCicilan(p.SkemaCicilan); c != "" {
			pp = append(pp, c)
		}
		parts = append(parts, strings.Join(pp, " "))
	}
	return strings.Join(parts, " ")
}

func renderPPDB(alur Ordered[AlurPPDB]) string {
	parts := make([]string, 0, len(alur))
	for _, a := range alur {
		ap := []string{fmt.Sprintf("Untuk kondisi '%s', deskripsinya adalah: %s.", a.Key, a.Value.Deskripsi)}
		for _, l := range a.Value.LangkahLangkah {
			tugas := l.TugasUtama
			if tugas == "" {
				tugas = l.Tugas
			}
			lp := []string{fmt.Sprintf("Langkah ke-%s: %s.", l.LangkahKe, tugas)}
			if l.OpsiPembayaran != nil {
				opsi := make([]string, len(l.OpsiPembayaran))
				for i, o := range l.OpsiPembayaran {
					opsi[i] = fmt.Sprintf("Opsi pembayaran %s: %s menggunakan media %s.", o.Metode, o.Detail, o.Media)
				}
				lp = append(lp, strings.Join(opsi, " "))
			} else {
				lp = append(lp, fmt.Sprintf("Media yang digunakan adalah %s.", orNA(l.Media)))
			}
			ap = append(ap, strings.Join(lp, " "))
		}
		parts = append(parts, strings.Join(ap, " "))
	}
	return strings.Join(parts, " ")
}

// renderRaw renders any JSON value as prose: lists joined by ", ", objects
// as "Key: value" pairs, null as empty.
func renderRaw(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return ""
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s := renderRaw(it); s != "" {
				out = append(out, s)
			}
		}
		return strings.Join(out, ", ")
	case '{':
		var fields Ordered[json.RawMessage]
		if err := json.Unmarshal(raw, &fields); err != nil {
			return ""
		}
		out := make([]string, 0, len(fields))
		for _, f := range fields {
			if s := renderRaw(f.Value); s != "" {
				out = append(out, fmt.Sprintf("%s: %s", humanize(f.Key), s))
			}
		}
		return strings.Join(out, ", ")
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}

// propValue converts a JSON value to a scalar node property. Lists become
// string lists and objects their rendered text; null is dropped.
func propValue(raw json.RawMessage) (any, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, false
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, renderRaw(it))
		}
		return out, true
	case '{':
		return renderRaw(raw), true
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, _ := n.Float64()
		return f, true
	}
	return v, true
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// humanize turns a snake_case key into a sentence-case label:
// "jam_operasional_sekolah" -> "Jam operasional sekolah".
func humanize(key string) string {
	s := []rune(strings.ToLower(strings.ReplaceAll(key, "_", " ")))
	if len(s) == 0 {
		return ""
	}
	s[0] = unicode.ToUpper(s[0])
	return string(s)
}

// pascal turns a snake_case key into PascalCase: "kontak_penting" -> "KontakPenting".
func pascal(key string) string {
	var b strings.Builder
	for _, w := range strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == ' ' || r == '-' }) {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}
