package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrMissingSchoolName is returned when profil_sekolah carries no nama.
var ErrMissingSchoolName = errors.New("profil_sekolah.nama is required")

// Document is one school's knowledge document. Sections that are absent or
// empty are skipped during ingestion.
type Document struct {
	Profil            Profil                   `json:"profil_sekolah"`
	Sejarah           []string                 `json:"sejarah"`
	VisiMisi          *VisiMisi                `json:"visi_dan_misi"`
	PengetahuanUmum   Ordered[Jurusan]         `json:"pengetahuan_umum"`
	BiayaPendidikan   *BiayaPendidikan         `json:"biaya_pendidikan"`
	BiayaSeragam      *BiayaSeragam            `json:"biaya_seragam"`
	KelasIndustri     *KelasIndustri           `json:"kelas_industri"`
	TenagaPendidik    []string                 `json:"tenaga_pendidik_dan_staf"`
	Ekstrakurikuler   []string                 `json:"ekstrakurikuler"`
	InformasiTambahan Ordered[json.RawMessage] `json:"informasi_tambahan"`
	PanduanPPDB       Ordered[AlurPPDB]        `json:"panduan_ppdb"`
}

// Profil is the school profile: a required nama plus any other fields,
// kept in document order.
type Profil struct {
	Nama   string
	Fields Ordered[json.RawMessage]
}

func (p *Profil) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &p.Fields); err != nil {
		return err
	}
	p.Nama = ""
	for _, f := range p.Fields {
		if f.Key == "nama" {
			p.Nama = strings.TrimSpace(renderRaw(f.Value))
		}
	}
	return nil
}

type VisiMisi struct {
	Visi string   `json:"visi"`
	Misi []string `json:"misi"`
}

type Jurusan struct {
	Deskripsi      string   `json:"deskripsi"`
	Karier         []string `json:"karier"`
	KuliahLanjutan []string `json:"kuliah_lanjutan"`
	FunFact        string   `json:"fun_fact"`
}

type BiayaPendidikan struct {
	TahunAjaran        Text                `json:"tahun_ajaran"`
	CatatanUmum        string              `json:"catatan_umum"`
	RincianPerKelompok []KelompokBiaya     `json:"rincian_per_kelompok"`
	NonTunai           *PembayaranNonTunai `json:"metode_pembayaran_non_tunai"`
}

type KelompokBiaya struct {
	KelompokKeahlian       string    `json:"kelompok_keahlian"`
	TotalBiayaTahunPertama Rupiah    `json:"total_biaya_tahun_pertama"`
	Termasuk               []string  `json:"termasuk"`
	SkemaCicilan           []Cicilan `json:"skema_cicilan"`
}

type Cicilan struct {
	Tahap           Text   `json:"tahap"`
	Jumlah          Rupiah `json:"jumlah"`
	BatasPembayaran string `json:"batas_pembayaran"`
}

type PembayaranNonTunai struct {
	TransferBank []TransferBank `json:"transfer_bank"`
	QRIS         string         `json:"qris"`
}

type TransferBank struct {
	Bank          string `json:"bank"`
	NomorRekening Text   `json:"nomor_rekening"`
	AtasNama      string `json:"atas_nama"`
}

type BiayaSeragam struct {
	TahunAjaran  Text              `json:"tahun_ajaran"`
	Pria         []KelompokSeragam `json:"pria"`
	WanitaMuslim []KelompokSeragam `json:"wanita_muslim"`
}

type KelompokSeragam struct {
	KelompokJurusan string        `json:"kelompok_jurusan"`
	Total           Rupiah        `json:"total"`
	Rincian         []ItemSeragam `json:"rincian"`
}

type ItemSeragam struct {
	Item  string `json:"item"`
	Biaya Rupiah `json:"biaya"`
}

type KelasIndustri struct {
	Catatan string            `json:"catatan"`
	Program []ProgramIndustri `json:"program"`
}

type ProgramIndustri struct {
	NamaProgram            string    `json:"nama_program"`
	JurusanTerkait         []string  `json:"jurusan_terkait"`
	Kuota                  Text      `json:"kuota"`
	TotalBiayaTahunPertama Rupiah    `json:"total_biaya_tahun_pertama"`
	BiayaTermasuk          []string  `json:"biaya_termasuk"`
	Manfaat                []string  `json:"manfaat"`
	SkemaCicilan           []Cicilan `json:"skema_cicilan"`
}

type AlurPPDB struct {
	Deskripsi      string    `json:"deskripsi"`
	LangkahLangkah []Langkah `json:"langkah_langkah"`
}

// Langkah is one registration step. OpsiPembayaran is nil when the step has
// no payment options, and non-nil (possibly empty) when the key is present.
type Langkah struct {
	LangkahKe      Text             `json:"langkah_ke"`
	TugasUtama     string           `json:"tugas_utama"`
	Tugas          string           `json:"tugas"`
	Media          string           `json:"media"`
	OpsiPembayaran []OpsiPembayaran `json:"opsi_pembayaran"`
}

type OpsiPembayaran struct {
	Metode string `json:"metode"`
	Detail string `json:"detail"`
	Media  string `json:"media"`
}

// Entry is one key of a JSON object.
type Entry[T any] struct {
	Key   string
	Value T
}

// Ordered decodes a JSON object keeping its key order, so rendered text is
// stable across runs.
type Ordered[T any] []Entry[T]

func (o *Ordered[T]) UnmarshalJSON(data []byte) error {
	*o = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var v T
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		*o = append(*o, Entry[T]{Key: key, Value: v})
	}
	_, err = dec.Token()
	return err
}

// Rupiah is a currency amount in whole rupiah. It accepts JSON numbers and
// numeric strings.
type Rupiah int64

func (r *Rupiah) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*r = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*r = Rupiah(n)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*r = Rupiah(math.Round(f))
		return nil
	}
	// "5.000.000" or "5,000,000"
	n, err := strconv.ParseInt(strings.NewReplacer(",", "", ".", "").Replace(s), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid rupiah amount %s", data)
	}
	*r = Rupiah(n)
	return nil
}

// String renders the amount with comma thousands separators, e.g. 5,250,000.
func (r Rupiah) String() string {
	n := int64(r)
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	b.WriteString(sign)
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Text is a scalar rendered as text. It accepts strings, numbers and booleans.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	*t = Text(renderRaw(data))
	return nil
}

// LoadFile reads and decodes a document.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a document from JSON.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return &doc, nil
}
