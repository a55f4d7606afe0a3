// Package fields defines the transcription field catalogue: the exact
// Turkish column labels the clerks fill in, and their seeded defaults.
// The label strings are persisted and exported, so they must stay
// bit-exact across versions.
package fields

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Built-in catalogue. A deployment can override it with a YAML file, for
// example to add customer-specific columns.
var (
	defaultDeclarationFields = []string{
		"Alıcı",
		"ALICI VKN",
		"KONTEYNER NO",
		"Teslim şekli",
		"Brüt KG",
		"SON AMBAR",
		"ÖZET BEYAN NO",
		"BEYANNAME TESCİL TARİHİ",
		"TAREKS-TARIM-TSE",
	}

	defaultFreightFields = []string{
		"D.Ö.",
		"Nakliyeci",
		"Fat. Tarihi",
		"Tahmini Çıkış Tarihi",
		"Varış Tarihi",
		"TT",
		"Çıkış Limanı",
		"Hacim",
		"w/m navlun",
		"Navlun Fatura Tutarı",
		"Rakip EXW / FCA",
		"All in Fatura Tutarı",
		"Öykü Dönem Navlun w/m",
		"Total Fark w/m",
		"Varış Limanı",
		"HAT",
		"KAYIT TARİHİ",
	}

	defaultSeeds = map[string]string{
		"TAREKS-TARIM-TSE": "YOK",
		"ÖZET BEYAN NO":    "IM",
	}
)

// KayitTarihiKey is seeded with today's date on record creation.
const KayitTarihiKey = "KAYIT TARİHİ"

// KayitTarihiLayout is the DD.MM.YYYY format used throughout the app.
const KayitTarihiLayout = "02.01.2006"

// Catalogue is the ordered set of transcription fields.
type Catalogue struct {
	Declaration []string          `yaml:"declaration"`
	Freight     []string          `yaml:"freight"`
	Seeds       map[string]string `yaml:"seeds"`
}

// Default returns the built-in catalogue.
func Default() *Catalogue {
	return &Catalogue{
		Declaration: append([]string(nil), defaultDeclarationFields...),
		Freight:     append([]string(nil), defaultFreightFields...),
		Seeds:       copySeeds(defaultSeeds),
	}
}

// Load reads a catalogue override from a YAML file. Missing sections fall
// back to the built-in values, so a file may override only the seeds.
func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading field catalogue: %w", err)
	}

	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing field catalogue: %w", err)
	}

	def := Default()
	if len(c.Declaration) == 0 {
		c.Declaration = def.Declaration
	}
	if len(c.Freight) == 0 {
		c.Freight = def.Freight
	}
	if c.Seeds == nil {
		c.Seeds = def.Seeds
	}
	return &c, nil
}

// Keys returns every field label in declaration-then-freight order. This
// is also the column order of the spreadsheet export.
func (c *Catalogue) Keys() []string {
	keys := make([]string, 0, len(c.Declaration)+len(c.Freight))
	keys = append(keys, c.Declaration...)
	keys = append(keys, c.Freight...)
	return keys
}

// Defaults builds the field map seeded at record creation: every key set
// to the empty string, the fixed seeds applied, and the registration date
// set to the given day.
func (c *Catalogue) Defaults(now time.Time) map[string]string {
	data := make(map[string]string, len(c.Declaration)+len(c.Freight))
	for _, k := range c.Keys() {
		data[k] = ""
	}
	for k, v := range c.Seeds {
		data[k] = v
	}
	if _, ok := data[KayitTarihiKey]; ok {
		data[KayitTarihiKey] = now.Format(KayitTarihiLayout)
	}
	return data
}

func copySeeds(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
