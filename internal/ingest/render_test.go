package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medikacom/kgrag/internal/graph"
)

func TestRupiah_String(t *testing.T) {
	tests := []struct {
		in   Rupiah
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{5250000, "5,250,000"},
		{-120000, "-120,000"},
		{100000000, "100,000,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.String())
	}
}

func TestRupiah_Unmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want Rupiah
	}{
		{`5000000`, 5000000},
		{`5000000.0`, 5000000},
		{`"750000"`, 750000},
		{`"5.000.000"`, 5000000},
		{`null`, 0},
	}
	for _, tt := range tests {
		var r Rupiah
		require.NoError(t, json.Unmarshal([]byte(tt.in), &r), tt.in)
		assert.Equal(t, tt.want, r, tt.in)
	}

	var r Rupiah
	assert.Error(t, json.Unmarshal([]byte(`"gratis"`), &r))
}

func TestOrdered_KeepsKeyOrder(t *testing.T) {
	var o Ordered[string]
	require.NoError(t, json.Unmarshal([]byte(`{"z": "1", "a": "2", "m": "3"}`), &o))
	keys := make([]string, len(o))
	for i, e := range o {
		keys[i] = e.Key
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys)

	require.NoError(t, json.Unmarshal([]byte(`null`), &o))
	assert.Empty(t, o)
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &o))
}

func TestHumanizeAndPascal(t *testing.T) {
	assert.Equal(t, "Jam operasional sekolah", humanize("jam_operasional_sekolah"))
	assert.Equal(t, "Akreditasi", humanize("AKREDITASI"))
	assert.Equal(t, "JamOperasionalSekolah", pascal("jam_operasional_sekolah"))
	assert.Equal(t, "KontakPenting", pascal("kontak_penting"))
	assert.Equal(t, "", pascal("__"))
}

func TestRenderRaw(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`"teks"`, "teks"},
		{`["Lab Komputer", "Perpustakaan"]`, "Lab Komputer, Perpustakaan"},
		{`{"telepon": "022-123", "email_resmi": "a@b.id"}`, "Telepon: 022-123, Email resmi: a@b.id"},
		{`42`, "42"},
		{`true`, "true"},
		{`null`, ""},
		{`[null, "x"]`, "x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, renderRaw(json.RawMessage(tt.in)), tt.in)
	}
}

func TestProfileSection(t *testing.T) {
	var p Profil
	require.NoError(t, json.Unmarshal([]byte(`{
		"nama": "SMK Medikacom",
		"npsn": 20200000,
		"lokasi_lengkap": {"kota": "Bandung", "provinsi": "Jawa Barat"},
		"akreditasi": "A",
		"website": null
	}`), &p))
	assert.Equal(t, "SMK Medikacom", p.Nama)

	sec := profileSection(p)
	assert.Equal(t, graph.LabelSekolah, sec.Label)
	assert.Equal(t, "nama", sec.KeyProperty)
	assert.Equal(t, int64(20200000), sec.Props["npsn"])
	assert.Equal(t, "Bandung", sec.Props["lokasi_kota"])
	assert.Equal(t, "Jawa Barat", sec.Props["lokasi_provinsi"])
	assert.NotContains(t, sec.Props, "lokasi_lengkap")
	assert.NotContains(t, sec.Props, "website")

	require.Len(t, sec.Chains, 1)
	c := sec.Chains[0]
	assert.Equal(t, "Nama Sekolah: SMK Medikacom. Npsn: 20200000. Lokasi kota: Bandung. Lokasi provinsi: Jawa Barat. Akreditasi: A", c.Text)
	assert.Equal(t, "Sekolah_DeskripsiProfil", c.Category)
	assert.Equal(t, graph.RelHasDescriptionChunk, c.Anchor)
}

func TestRenderBiayaPendidikan(t *testing.T) {
	var b BiayaPendidikan
	require.NoError(t, json.Unmarshal([]byte(`{
		"tahun_ajaran": "2025/2026",
		"rincian_per_kelompok": [{
			"kelompok_keahlian": "TKJ",
			"total_biaya_tahun_pertama": 5250000,
			"termasuk": ["SPP Juli", "Seragam"],
			"skema_cicilan": [
				{"tahap": 1, "jumlah": 2000000, "batas_pembayaran": "Juni"},
				{"tahap": 2, "jumlah": 3250000, "batas_pembayaran": "Juli"}
			]
		}],
		"metode_pembayaran_non_tunai": {
			"transfer_bank": [{"bank": "BJB", "nomor_rekening": 123456, "atas_nama": "SMK"}],
			"qris": "https://example.test/qris"
		}
	}`), &b))

	want := "Informasi biaya pendidikan untuk tahun ajaran 2025/2026. " +
		"Untuk kelompok keahlian TKJ, total biaya tahun pertama adalah Rp 5,250,000. Biaya ini sudah termasuk: SPP Juli, Seragam. " +
		"Skema pembayaran dapat dicicil: pembayaran tahap 1 sebesar Rp 2,000,000 dengan batas pembayaran Juni, dan " +
		"pembayaran tahap 2 sebesar Rp 3,250,000 dengan batas pembayaran Juli. " +
		"Metode pembayaran non-tunai yang tersedia adalah: Transfer Bank BJB ke nomor rekening 123456 atas nama SMK. " +
		"Pembayaran melalui QRIS juga tersedia, QR code dapat dilihat pada link https://example.test/qris."
	assert.Equal(t, want, renderBiayaPendidikan(&b))
}

func TestRenderBiayaSeragam(t *testing.T) {
	s := &BiayaSeragam{
		Pria: []KelompokSeragam{{
			KelompokJurusan: "Kesehatan", Total: 1500000,
			Rincian: []ItemSeragam{{Item: "Kemeja", Biaya: 500000}, {Item: "Celana", Biaya: 1000000}},
		}},
		WanitaMuslim: []KelompokSeragam{{Total: 1750000}},
	}
	assert.Equal(t,
		"Biaya seragam untuk Pria kelompok jurusan Kesehatan adalah Rp 1,500,000 dengan rincian: Kemeja seharga Rp 500,000, Celana seharga Rp 1,000,000. "+
			"Biaya seragam untuk Wanita Muslim kelompok jurusan N/A adalah Rp 1,750,000 dengan rincian: .",
		renderBiayaSeragam(s))
}

func TestRenderKelasIndustri(t *testing.T) {
	k := &KelasIndustri{
		Catatan: "Kuota terbatas",
		Program: []ProgramIndustri{{
			NamaProgram:            "Kelas Astra",
			JurusanTerkait:         []string{"TKR", "TSM"},
			Kuota:                  "36",
			TotalBiayaTahunPertama: 7000000,
			Manfaat:                []string{"Magang", "Sertifikat"},
		}},
	}
	assert.Equal(t,
		"Catatan umum kelas industri: Kuota terbatas. "+
			"Program kelas industri bernama 'Kelas Astra' ditujukan untuk jurusan TKR, TSM. Kuota yang tersedia adalah 36. "+
			"Total biaya tahun pertama adalah Rp 7,000,000. Manfaat yang didapat antara lain: Magang. Sertifikat.",
		renderKelasIndustri(k))
}

func TestRenderPPDB(t *testing.T) {
	var alur Ordered[AlurPPDB]
	require.NoError(t, json.Unmarshal([]byte(`{
		"siswa_baru": {
			"deskripsi": "Pendaftaran umum",
			"langkah_langkah": [
				{"langkah_ke": 1, "tugas_utama": "Isi formulir", "media": "Website"},
				{"langkah_ke": 2, "tugas": "Bayar", "opsi_pembayaran": [
					{"metode": "Transfer", "detail": "ke rekening sekolah", "media": "ATM"}
				]},
				{"langkah_ke": 3, "tugas": "Datang ke sekolah"}
			]
		}
	}`), &alur))

	assert.Equal(t,
		"Untuk kondisi 'siswa_baru', deskripsinya adalah: Pendaftaran umum. "+
			"Langkah ke-1: Isi formulir. Media yang digunakan adalah Website. "+
			"Langkah ke-2: Bayar. Opsi pembayaran Transfer: ke rekening sekolah menggunakan media ATM. "+
			"Langkah ke-3: Datang ke sekolah. Media yang digunakan adalah N/A.",
		renderPPDB(alur))
}

func TestPlan_InformasiTambahan(t *testing.T) {
	doc, err := Parse([]byte(`{
		"profil_sekolah": {"nama": "X"},
		"informasi_tambahan": {
			"kontak_penting": ["022-1", "022-2"],
			"jam_operasional_sekolah": "07.00 - 15.00",
			"kosong": "",
			"___": "tidak bernama"
		}
	}`))
	require.NoError(t, err)

	sections, skipped := plan(doc)
	assert.Equal(t, []string{"___"}, skipped)
	require.Len(t, sections, 1)
	sec := sections[0]
	assert.Equal(t, graph.LabelInformasiTambahan, sec.Label)
	assert.Equal(t, graph.RelHasAdditionalInfo, sec.Link)

	require.Len(t, sec.Chains, 2)
	assert.Equal(t, chainPlan{
		Text: "022-1, 022-2", Prefix: "Kontak penting",
		Category: "InformasiTambahan_KontakPenting", Anchor: "HAS_KONTAKPENTING_CHUNK",
	}, sec.Chains[0])
	assert.Equal(t, "InformasiTambahan_JamOperasionalSekolah", sec.Chains[1].Category)
	assert.Equal(t, graph.RelType("HAS_JAMOPERASIONALSEKOLAH_CHUNK"), sec.Chains[1].Anchor)
}

func TestPlan_InformasiTambahanDuplicateAnchor(t *testing.T) {
	doc, err := Parse([]byte(`{
		"profil_sekolah": {"nama": "X"},
		"informasi_tambahan": {
			"kontak_penting": "022-1",
			"kontak-penting": "022-2",
			"fasilitas": "Lab"
		}
	}`))
	require.NoError(t, err)

	sections, skipped := plan(doc)
	assert.Equal(t, []string{"kontak-penting"}, skipped)
	require.Len(t, sections, 1)
	chains := sections[0].Chains
	require.Len(t, chains, 2)
	assert.Equal(t, "022-1", chains[0].Text)
	assert.Equal(t, graph.RelType("HAS_KONTAKPENTING_CHUNK"), chains[0].Anchor)
	assert.Equal(t, "InformasiTambahan_Fasilitas", chains[1].Category)
}

func TestPlan_SkipsEmptySections(t *testing.T) {
	doc, err := Parse([]byte(`{
		"profil_sekolah": {"nama": "X"},
		"sejarah": [],
		"visi_dan_misi": {"visi": "", "misi": []},
		"biaya_pendidikan": {},
		"ekstrakurikuler": ["Pramuka"]
	}`))
	require.NoError(t, err)

	sections, _ := plan(doc)
	require.Len(t, sections, 1)
	assert.Equal(t, "ekstrakurikuler", sections[0].Name)
	assert.Equal(t, "Pramuka", sections[0].Chains[0].Text)
}

func TestPlan_VisiMisi(t *testing.T) {
	doc := &Document{VisiMisi: &VisiMisi{Visi: "Unggul", Misi: []string{"Disiplin", "Kreatif"}}}
	sections, _ := plan(doc)
	require.Len(t, sections, 1)
	chains := sections[0].Chains
	require.Len(t, chains, 2)
	assert.Equal(t, graph.RelHasVisiChunk, chains[0].Anchor)
	assert.Equal(t, "Visi_Detail", chains[0].Category)
	assert.Equal(t, "Poin Misi 1: Disiplin Poin Misi 2: Kreatif", chains[1].Text)
	assert.Equal(t, graph.RelHasMisiChunk, chains[1].Anchor)
}
