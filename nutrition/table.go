package nutrition

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/facette/natsort"
)

//go:embed nutrition_data.json
var bundledDataset []byte

// Table is the label -> reference entry mapping. It is built once and never
// mutated, so concurrent readers need no locking.
type Table struct {
	entries map[string]Data
	labels  []string
}

// rawEntry mirrors the dataset document. Pointers mark required fields so a
// missing key can be told apart from an explicit zero.
type rawEntry struct {
	DisplayName *string `json:"displayName"`
	ServingSize *struct {
		Amount      *int    `json:"amount"`
		Unit        string  `json:"unit"`
		Description *string `json:"description"`
	} `json:"servingSize"`
	NutritionPer100g *struct {
		Calories *float64 `json:"calories"`
		Water    *float64 `json:"water"`
		Protein  *float64 `json:"protein"`
		Fat      *float64 `json:"fat"`
		Carbs    *float64 `json:"carbs"`
		Fiber    *float64 `json:"fiber"`
		Sugar    *float64 `json:"sugar"`
		VitaminC *float64 `json:"vitaminC"`
	} `json:"nutritionPer100g"`
}

func (r rawEntry) toData() (Data, error) {
	if r.DisplayName == nil || *r.DisplayName == "" {
		return Data{}, fmt.Errorf("missing displayName")
	}
	if r.ServingSize == nil || r.ServingSize.Amount == nil || r.ServingSize.Description == nil {
		return Data{}, fmt.Errorf("missing servingSize.amount or servingSize.description")
	}
	if *r.ServingSize.Amount <= 0 {
		return Data{}, fmt.Errorf("servingSize.amount must be positive, got %d", *r.ServingSize.Amount)
	}
	n := r.NutritionPer100g
	if n == nil {
		return Data{}, fmt.Errorf("missing nutritionPer100g")
	}

	required := []struct {
		name string
		v    *float64
	}{
		{"calories", n.Calories}, {"protein", n.Protein}, {"fat", n.Fat}, {"carbs", n.Carbs},
		{"fiber", n.Fiber}, {"sugar", n.Sugar}, {"vitaminC", n.VitaminC},
	}
	for _, f := range required {
		if f.v == nil {
			return Data{}, fmt.Errorf("missing nutritionPer100g.%s", f.name)
		}
		if *f.v < 0 {
			return Data{}, fmt.Errorf("nutritionPer100g.%s is negative", f.name)
		}
	}
	var water float64
	if n.Water != nil {
		if *n.Water < 0 {
			return Data{}, fmt.Errorf("nutritionPer100g.water is negative")
		}
		water = *n.Water
	}

	return Data{
		DisplayName: *r.DisplayName,
		ServingSize: ServingSize{
			Amount:      *r.ServingSize.Amount,
			Unit:        r.ServingSize.Unit,
			Description: *r.ServingSize.Description,
		},
		Per100g: Values{
			Calories:   *n.Calories,
			Water:      water,
			Protein:    *n.Protein,
			Fat:        *n.Fat,
			TotalCarbs: *n.Carbs,
			Fiber:      *n.Fiber,
			Sugar:      *n.Sugar,
			VitaminC:   *n.VitaminC,
		},
	}, nil
}

// LoadTable parses a dataset document. Entries that fail validation are
// skipped and logged; only a document that is not a JSON object is an error.
func LoadTable(r io.Reader) (*Table, error) {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse nutrition dataset: %w", err)
	}

	entries := make(map[string]Data, len(doc))
	for label, raw := range doc {
		var re rawEntry
		if err := json.Unmarshal(raw, &re); err != nil {
			log.Printf("nutrition: skipping entry '%s': %v", label, err)
			continue
		}
		data, err := re.toData()
		if err != nil {
			log.Printf("nutrition: skipping entry '%s': %v", label, err)
			continue
		}
		entries[label] = data
	}

	labels := make([]string, 0, len(entries))
	for label := range entries {
		labels = append(labels, label)
	}
	natsort.Sort(labels)

	log.Printf("nutrition: loaded %d of %d dataset entries", len(entries), len(doc))
	return &Table{entries: entries, labels: labels}, nil
}

// LoadTableFile reads a dataset from disk
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open nutrition dataset %s: %w", path, err)
	}
	defer f.Close()
	return LoadTable(f)
}

// DefaultTable parses the dataset compiled into the binary
func DefaultTable() (*Table, error) {
	return LoadTable(bytes.NewReader(bundledDataset))
}

// Lookup returns the reference entry for label
func (t *Table) Lookup(label string) (Data, error) {
	data, ok := t.entries[label]
	if !ok {
		return Data{}, fmt.Errorf("%w for label '%s'", ErrNotFound, label)
	}
	return data, nil
}

// Display is Lookup followed by Scale
func (t *Table) Display(label string) (Display, error) {
	data, err := t.Lookup(label)
	if err != nil {
		return Display{}, err
	}
	return Scale(data), nil
}

// DisplayName returns the human name for label, or label itself if unknown
func (t *Table) DisplayName(label string) string {
	if data, ok := t.entries[label]; ok {
		return data.DisplayName
	}
	return label
}

// Labels lists the table keys in natural order
func (t *Table) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

func (t *Table) Len() int {
	return len(t.entries)
}

// Load reads the dataset at path, or the bundled one when path is empty
func Load(path string) (*Table, error) {
	if path == "" {
		return DefaultTable()
	}
	return LoadTableFile(path)
}
