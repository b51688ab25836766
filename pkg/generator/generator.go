// Package generator produces plausible synthetic records from object
// schemas, used to lazily seed empty collections on first read.
package generator

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apimocker/apimocker/pkg/openapi"
)

// Generator creates synthetic field values from schema type, format and
// field-name hints.
type Generator struct {
	rng *rand.Rand
}

// New creates a Generator with a time-based seed.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed creates a Generator with a fixed seed for reproducible output.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// GenerateMany produces count records with sequential ids starting at
// startID.
func (g *Generator) GenerateMany(schema *openapi.Schema, count, startID int) []map[string]any {
	records := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, g.Generate(schema, startID+i))
	}
	return records
}

// Generate produces one record for an object schema. Schemas without
// properties yield an empty record.
func (g *Generator) Generate(schema *openapi.Schema, id int) map[string]any {
	record := make(map[string]any)
	if schema == nil {
		return record
	}
	for name, prop := range schema.Properties {
		record[name] = g.value(name, prop, id)
	}
	return record
}

func (g *Generator) value(name string, schema *openapi.Schema, id int) any {
	if schema == nil {
		return nil
	}

	// Unresolved references carry no usable shape.
	if schema.Ref != "" && len(schema.Properties) == 0 {
		return nil
	}

	if len(schema.Enum) > 0 {
		return schema.Enum[g.rng.Intn(len(schema.Enum))]
	}

	switch strings.ToLower(schema.Type) {
	case "integer", "number":
		return g.number(name, schema, id)
	case "string":
		return g.str(name, schema)
	case "boolean":
		return g.rng.Intn(2) == 0
	case "array":
		return g.array(name, schema, id)
	case "object":
		return g.Generate(schema, id)
	default:
		return nil
	}
}

func (g *Generator) number(name string, schema *openapi.Schema, id int) any {
	lower := strings.ToLower(name)

	if lower == "id" || strings.HasSuffix(lower, "id") {
		return int64(id)
	}

	min, max := 0.0, 1000.0
	if strings.Contains(lower, "age") {
		min, max = 18, 80
	}
	if schema.Minimum != nil {
		min = *schema.Minimum
	}
	if schema.Maximum != nil {
		max = *schema.Maximum
	}
	if max < min {
		max = min
	}

	if schema.Type == "integer" {
		return int64(min) + g.rng.Int63n(int64(max-min)+1)
	}
	return min + g.rng.Float64()*(max-min)
}

func (g *Generator) str(name string, schema *openapi.Schema) string {
	if schema.Format != "" {
		switch strings.ToLower(schema.Format) {
		case "email":
			return g.email()
		case "date":
			return g.pastDate().Format("2006-01-02")
		case "date-time":
			return g.pastDate().Format(time.RFC3339)
		case "uri", "url":
			return g.url()
		case "uuid":
			return uuid.NewString()
		case "phone":
			return g.phone()
		default:
			return g.pick(loremWords)
		}
	}

	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "name") && !strings.Contains(lower, "file"):
		return g.pick(firstNames) + " " + g.pick(lastNames)
	case strings.Contains(lower, "email"):
		return g.email()
	case strings.Contains(lower, "phone") || strings.Contains(lower, "tel"):
		return g.phone()
	case strings.Contains(lower, "address"):
		return fmt.Sprintf("%d %s St, %s", 1+g.rng.Intn(999), g.pick(streetNames), g.pick(cityNames))
	case strings.Contains(lower, "city"):
		return g.pick(cityNames)
	case strings.Contains(lower, "title"):
		return strings.Join(g.words(3), " ")
	case strings.Contains(lower, "description"):
		return strings.Join(g.words(12), " ")
	case strings.Contains(lower, "url") || strings.Contains(lower, "link"):
		return g.url()
	case strings.Contains(lower, "image") || strings.Contains(lower, "avatar") || strings.Contains(lower, "photo"):
		return fmt.Sprintf("https://picsum.photos/seed/%d/200/200", g.rng.Intn(1000))
	case strings.Contains(lower, "status") || strings.Contains(lower, "state"):
		return g.pick([]string{"active", "inactive", "pending"})
	case strings.Contains(lower, "created") || strings.Contains(lower, "updated") || strings.Contains(lower, "date"):
		return g.pastDate().Format(time.RFC3339)
	}

	text := strings.Join(g.words(6), " ")
	if schema.MaxLength != nil && len(text) > *schema.MaxLength {
		text = text[:*schema.MaxLength]
	}
	return text
}

func (g *Generator) array(name string, schema *openapi.Schema, id int) []any {
	count := 1 + g.rng.Intn(5)
	items := make([]any, 0, count)
	if schema.Items == nil {
		return items
	}
	for i := 0; i < count; i++ {
		items = append(items, g.value(name, schema.Items, id+i))
	}
	return items
}

func (g *Generator) email() string {
	return fmt.Sprintf("%s.%s@%s",
		strings.ToLower(g.pick(firstNames)),
		strings.ToLower(g.pick(lastNames)),
		g.pick(mailDomains))
}

func (g *Generator) phone() string {
	return fmt.Sprintf("0%d0-%04d-%04d", 1+g.rng.Intn(8), g.rng.Intn(10000), g.rng.Intn(10000))
}

func (g *Generator) url() string {
	return fmt.Sprintf("https://%s.example.com/%s", strings.ToLower(g.pick(loremWords)), g.pick(loremWords))
}

func (g *Generator) pastDate() time.Time {
	return time.Now().AddDate(0, 0, -g.rng.Intn(730)).Truncate(time.Second)
}

func (g *Generator) pick(list []string) string {
	return list[g.rng.Intn(len(list))]
}

func (g *Generator) words(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = g.pick(loremWords)
	}
	return out
}

var (
	firstNames = []string{
		"Alice", "Bob", "Carol", "David", "Emma", "Frank", "Grace", "Henry",
		"Iris", "Jack", "Karen", "Liam", "Mia", "Noah", "Olivia", "Peter",
	}
	lastNames = []string{
		"Anderson", "Brown", "Clark", "Davis", "Evans", "Foster", "Garcia",
		"Harris", "Jackson", "King", "Lewis", "Miller", "Nelson", "Parker",
	}
	mailDomains = []string{"example.com", "example.org", "mail.test", "inbox.test"}
	streetNames = []string{"Main", "Oak", "Maple", "Cedar", "Park", "Lake", "Hill"}
	cityNames   = []string{
		"Springfield", "Riverton", "Fairview", "Kingston", "Ashland",
		"Burlington", "Clayton", "Dayton", "Georgetown", "Milton",
	}
	loremWords = []string{
		"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing",
		"elit", "sed", "do", "eiusmod", "tempor", "incididunt", "labore",
		"magna", "aliqua", "enim", "minim", "veniam", "quis", "nostrud",
	}
)
