package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const canonicalCSV = "\ufeffproduct_id,product_name_ar,sell_price,category\n" +
	"1019,تيشيرت قطن سادة ابيض,130,لبس صيفي\n" +
	"1014,سكارف كشمير طويل,290.50,لبس خريفي\n" +
	"1001,جاكيت جلد اسود تقيل مبطن فرو,\"1,720\",لبس شتوي\n"

func TestParse_CanonicalColumns(t *testing.T) {
	c, err := Parse(strings.NewReader(canonicalCSV))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 products, got %d", c.Len())
	}
	want := []Product{
		{ID: "1019", Name: "تيشيرت قطن سادة ابيض", Price: 130, Category: "لبس صيفي"},
		{ID: "1014", Name: "سكارف كشمير طويل", Price: 290.5, Category: "لبس خريفي"},
		{ID: "1001", Name: "جاكيت جلد اسود تقيل مبطن فرو", Price: 1720, Category: "لبس شتوي"},
	}
	for i, p := range c.Products() {
		if p != want[i] {
			t.Errorf("product %d = %+v, want %+v", i, p, want[i])
		}
	}
}

func TestParse_AlternativeNamesAndOrder(t *testing.T) {
	input := "Category,Price,Title,SKU\n" +
		"Shoes,450,Canvas Sneakers,A-1\n"
	c, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	got, ok := c.Lookup("A-1")
	if !ok {
		t.Fatal("expected product A-1")
	}
	want := Product{ID: "A-1", Name: "Canvas Sneakers", Price: 450, Category: "Shoes"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParse_ArabicHeaders(t *testing.T) {
	input := "الكود,اسم المنتج,السعر,القسم\n" +
		"7,شنطة جلد,800,شنط\n"
	c, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	p, ok := c.Lookup("7")
	if !ok || p.Name != "شنطة جلد" || p.Category != "شنط" || p.Price != 800 {
		t.Errorf("unexpected product %+v ok=%v", p, ok)
	}
}

func TestParse_PositionalFallback(t *testing.T) {
	input := "col_a,col_b,col_c,col_d\n" +
		"55,Linen Shirt,210,Summer\n"
	c, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	p, ok := c.Lookup("55")
	want := Product{ID: "55", Name: "Linen Shirt", Price: 210, Category: "Summer"}
	if !ok || p != want {
		t.Errorf("got %+v ok=%v, want %+v", p, ok, want)
	}
}

func TestParse_UnknownIDAndCategory(t *testing.T) {
	// Only two columns: the positional slots for id (0) and name (1) are taken
	// by the named price/name matches, nothing is left for id or category.
	input := "price,name\n" +
		"99,Wool Socks\n" +
		"120,Wool Gloves\n"
	c, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 products, got %d", c.Len())
	}
	for _, p := range c.Products() {
		if p.ID != Unknown || p.Category != Unknown {
			t.Errorf("expected unknown id/category, got %+v", p)
		}
	}
}

func TestParse_SkipsBadRowsAndDuplicates(t *testing.T) {
	input := "product_id,name,price,category\n" +
		"1,Good Item,10,A\n" +
		"2,,10,A\n" +
		"3,No Price,abc,A\n" +
		"1,Duplicate Id,20,B\n" +
		",,,\n" +
		"4,Short Row,15\n" +
		"5,\"line one\nline two\",10,A\n" +
		"6,Cap,10,\"Hats\r\nBags\"\n" +
		"7,Left | Right,10,A\n" +
		"8,Not A Number,NaN,A\n" +
		"9,Infinite,+Inf,A\n" +
		"10,Negative,-5,A\n"
	c, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 products, got %d: %+v", c.Len(), c.Products())
	}
	if p, _ := c.Lookup("1"); p.Name != "Good Item" {
		t.Errorf("duplicate id should keep the first row, got %+v", p)
	}
	if p, _ := c.Lookup("4"); p.Category != Unknown {
		t.Errorf("short row category = %q, want unknown", p.Category)
	}

	rendered := c.Render("https://shop.example")
	if lines := strings.Count(rendered, "\n"); lines != c.Len() {
		t.Errorf("render has %d lines for %d products:\n%s", lines, c.Len(), rendered)
	}
	if strings.Contains(rendered, "NaN") || strings.Contains(rendered, "Inf") {
		t.Errorf("non-finite price rendered:\n%s", rendered)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); !errors.Is(err, ErrNoHeader) {
		t.Errorf("expected ErrNoHeader, got %v", err)
	}
}

func TestRender_StableAndVerbatim(t *testing.T) {
	c, err := Parse(strings.NewReader(canonicalCSV))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	first := c.Render("https://afaq-stores.com/")
	second := c.Render("https://afaq-stores.com/")
	if first != second {
		t.Fatal("rendering is not byte-stable")
	}

	lines := strings.Split(strings.TrimSuffix(first, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	wantFirst := "• تيشيرت قطن سادة ابيض | السعر: 130 جنيه | الكاتيجوري: لبس صيفي | اللينك: https://afaq-stores.com/product-details/1019"
	if lines[0] != wantFirst {
		t.Errorf("line 0 =\n%q\nwant\n%q", lines[0], wantFirst)
	}
	for i, p := range c.Products() {
		if !strings.HasPrefix(lines[i], "• "+p.Name+" | ") {
			t.Errorf("line %d does not start with the verbatim name %q", i, p.Name)
		}
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")
	if err := os.WriteFile(path, []byte(canonicalCSV), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("expected 3 products, got %d", c.Len())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
