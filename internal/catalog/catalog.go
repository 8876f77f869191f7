// Package catalog loads the product table once and renders it for prompts.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Unknown is used for ids and categories that could not be resolved.
const Unknown = "unknown"

// ErrNoHeader is returned for an empty table.
var ErrNoHeader = errors.New("catalog has no header row")

// Product is one canonical catalog record. Name is reproduced verbatim.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// Catalog is immutable after Load/Parse and safe for concurrent reads.
type Catalog struct {
	products []Product
	byID     map[string]int
}

const (
	fieldID       = "id"
	fieldName     = "name"
	fieldPrice    = "price"
	fieldCategory = "category"
)

// fieldRule lists the header names accepted for a canonical field, in
// priority order, plus the column used when none of them is present.
type fieldRule struct {
	field      string
	candidates []string
	position   int
}

var fieldRules = []fieldRule{
	{fieldName, []string{"product_name_ar", "product_name", "name", "title", "product_name_en", "اسم_المنتج", "الاسم", "المنتج"}, 1},
	{fieldPrice, []string{"sell_price", "price", "sale_price", "unit_price", "السعر", "سعر_البيع"}, 2},
	{fieldID, []string{"product_id", "id", "sku", "item_id", "code", "كود_المنتج", "رقم_المنتج", "الكود"}, 0},
	{fieldCategory, []string{"category", "category_name", "type", "section", "الكاتيجوري", "الفئة", "القسم"}, 3},
}

// Load reads a CSV product table from path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse reads a CSV product table with a header row.
func Parse(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns := resolveColumns(header)

	c := &Catalog{byID: make(map[string]int)}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		p, err := normalizeRow(record, columns)
		if err != nil {
			log.Printf("Skipping catalog row %d: %v", line, err)
			continue
		}
		if p.ID != Unknown {
			if _, dup := c.byID[p.ID]; dup {
				log.Printf("Skipping catalog row %d: duplicate id %q", line, p.ID)
				continue
			}
			c.byID[p.ID] = len(c.products)
		}
		c.products = append(c.products, p)
	}

	if len(c.products) == 0 {
		log.Println("Warning: catalog loaded with no products.")
	}
	return c, nil
}

// resolveColumns maps each canonical field to a column index, or -1.
func resolveColumns(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	columns := make(map[string]int, len(fieldRules))
	claimed := make(map[int]bool)
	for _, rule := range fieldRules {
		columns[rule.field] = -1
		for _, cand := range rule.candidates {
			if i, ok := index[normalizeHeader(cand)]; ok && !claimed[i] {
				columns[rule.field] = i
				claimed[i] = true
				break
			}
		}
	}
	// Positional fallback only for columns no named field claimed.
	for _, rule := range fieldRules {
		if columns[rule.field] == -1 && rule.position < len(header) && !claimed[rule.position] {
			columns[rule.field] = rule.position
			claimed[rule.position] = true
		}
	}
	return columns
}

func normalizeRow(record []string, columns map[string]int) (Product, error) {
	name := cell(record, columns[fieldName])
	if name == "" {
		return Product{}, errors.New("no product name")
	}
	rawPrice := cell(record, columns[fieldPrice])
	price, err := parsePrice(rawPrice)
	if err != nil {
		return Product{}, fmt.Errorf("bad price %q for %q", rawPrice, name)
	}

	p := Product{
		ID:       cell(record, columns[fieldID]),
		Name:     name,
		Price:    price,
		Category: cell(record, columns[fieldCategory]),
	}
	for _, v := range []string{p.ID, p.Name, p.Category} {
		if strings.ContainsAny(v, fieldBreakers) {
			return Product{}, fmt.Errorf("line break or separator in %q", v)
		}
	}
	if p.ID == "" {
		p.ID = Unknown
	}
	if p.Category == "" {
		p.Category = Unknown
	}
	return p, nil
}

// fieldBreakers would split a rendered record or blur its " | " separators.
const fieldBreakers = "\r\n|"

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parsePrice(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, errors.New("empty price")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("price %v out of range", v)
	}
	return v, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Len returns the number of products.
func (c *Catalog) Len() int { return len(c.products) }

// Products returns a copy of the records in load order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Lookup finds a product by id.
func (c *Catalog) Lookup(id string) (Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Link builds the public product page for id.
func Link(linkBase, id string) string {
	return strings.TrimRight(linkBase, "/") + "/product-details/" + url.PathEscape(id)
}

// FormatPrice renders a price without trailing zeros.
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

// Render lists every product on one line in load order:
// name | price | category | link. The output is byte-stable for a catalog.
func (c *Catalog) Render(linkBase string) string {
	var b strings.Builder
	for _, p := range c.products {
		fmt.Fprintf(&b, "• %s | السعر: %s جنيه | الكاتيجوري: %s | اللينك: %s\n",
			p.Name, FormatPrice(p.Price), p.Category, Link(linkBase, p.ID))
	}
	return b.String()
}
