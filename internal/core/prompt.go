package core

import (
	"fmt"
	"os"
	"strings"

	"afaq.com/stylist-gateway/internal/catalog"
	"afaq.com/stylist-gateway/internal/geo"
	"afaq.com/stylist-gateway/internal/store"
	"afaq.com/stylist-gateway/internal/weather"
)

const (
	// ImagePlaceholder stands in for the user's text in memory when only an image was sent.
	ImagePlaceholder = "[صورة]"

	imageOnlyTurn   = "فيه صورة مرفوعة"
	imageReplyStart = "ثانية بس أشوف الصورة..."
	exampleCount    = 3
)

// DefaultPersona frames the assistant when no PERSONA_FILE is configured.
const DefaultPersona = "أنت شاب مصري بتتكلم عامية مصرية طبيعية وودودة جدًا، بتعرف تحلل صور وبتفهم في الموضة والعناية الشخصية كويس."

// LoadPersona reads the persona text from path, or returns DefaultPersona when path is empty.
func LoadPersona(path string) (string, error) {
	if path == "" {
		return DefaultPersona, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read persona file: %w", err)
	}
	persona := strings.TrimSpace(string(b))
	if persona == "" {
		return "", fmt.Errorf("persona file %s is empty", path)
	}
	return persona, nil
}

// Prompt is a composed model input split at the points a session backend needs.
// String joins the parts in the order a stateless backend sends them.
type Prompt struct {
	Instructions string // persona, context facts, catalog and formatting rules
	Transcript   string // recent turns, empty when there are none
	Turn         string // current message and any image instruction
}

func (p Prompt) String() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Instructions, p.Transcript, p.Turn} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// PromptInput is everything one request contributes to a prompt.
type PromptInput struct {
	Location *geo.Location
	Forecast []weather.ForecastDay
	History  []store.Turn
	Message  string
	HasImage bool
}

// Composer builds prompts around a catalog snapshot. The listing and the
// formatting example are rendered once so every prompt carries identical bytes.
type Composer struct {
	persona string
	listing string
	example string
}

func NewComposer(persona string, cat *catalog.Catalog, linkBase string) *Composer {
	if persona == "" {
		persona = DefaultPersona
	}
	return &Composer{
		persona: persona,
		listing: cat.Render(linkBase),
		example: renderExample(cat, linkBase),
	}
}

// Compose assembles the prompt in a fixed order: persona, context facts,
// catalog listing, formatting rules, transcript, current turn, image instruction.
func (c *Composer) Compose(in PromptInput) Prompt {
	var b strings.Builder
	b.WriteString(c.persona)
	b.WriteString("\n\n")

	if facts := contextFacts(in.Location, in.Forecast); facts != "" {
		b.WriteString(facts)
		b.WriteString("\n\n")
	}

	b.WriteString("المنتجات اللي عندك (لازم تنسخ الاسم بالحرف من غير أي تغيير أو تلخيص أو اختراع نهائي):\n\n")
	b.WriteString("المنتجات المتاحة (ممنوع تغيير ولا حرف في الاسم أبدًا):\n")
	b.WriteString(c.listing)
	b.WriteString("\n")
	b.WriteString(c.rules())

	return Prompt{
		Instructions: strings.TrimSpace(b.String()),
		Transcript:   transcript(in.History),
		Turn:         currentTurn(in.Message, in.HasImage),
	}
}

func (c *Composer) rules() string {
	var b strings.Builder
	b.WriteString("≫≫ قواعد حديدية – ممنوع تخالفها أبدًا ≪≪\n\n")
	b.WriteString("لو اليوزر عايز لبس أو عناية أو رفع صورة لمنتج → لازم ترشح منتجات من القايمة فوق بس، بالتنسيق ده بالظبط (الاسم، السعر، الكاتيجوري، اللينك):\n\n")
	b.WriteString(c.example)
	b.WriteString("\nممنوع منعًا باتًا:\n")
	b.WriteString("- تكتب اسم كاتيجوري أو نوع لبس كاسم منتج\n")
	b.WriteString("- تختصر أو تعيد صياغة الاسم\n")
	b.WriteString("- تخترع اسم أو سعر أو كاتيجوري مش موجودين في القايمة\n\n")
	b.WriteString("لو اليوزر رفع صورة عادية أو سأل حاجة مش عن منتجات → حلل الصورة ورد طبيعي من غير منتجات.\n")
	b.WriteString("لو رفع صورة + كلام عن لبس أو عناية → حلل الصورة الأول وبعدين رشح بالتنسيق أعلاه.\n\n")
	b.WriteString("- ردك عامية مصرية 100%\n")
	b.WriteString("- متستخدمش إيموجي نهائي\n")
	b.WriteString("- متعترفش إنك بوت أبدًا\n")
	return b.String()
}

// renderExample shows the recommendation layout using real catalog rows.
func renderExample(cat *catalog.Catalog, linkBase string) string {
	products := cat.Products()
	if len(products) == 0 {
		return "اسم المنتج زي ما هو في القايمة\nالسعر: السعر من القايمة جنيه\nالكاتيجوري: الكاتيجوري من القايمة\nاللينك: اللينك من القايمة\n"
	}
	if len(products) > exampleCount {
		products = products[:exampleCount]
	}
	var b strings.Builder
	for i, p := range products {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\nالسعر: %s جنيه\nالكاتيجوري: %s\nاللينك: %s\n",
			p.Name, catalog.FormatPrice(p.Price), p.Category, catalog.Link(linkBase, p.ID))
	}
	return b.String()
}

func contextFacts(loc *geo.Location, days []weather.ForecastDay) string {
	if loc == nil {
		return ""
	}
	var b strings.Builder
	if len(days) == 0 {
		fmt.Fprintf(&b, "اليوزر في %s.", loc.City)
		return b.String()
	}

	today := days[0]
	fmt.Fprintf(&b, "الجو في %s النهاردة: %s°C (%s)\n", loc.City, formatTemp(today.MeanTemp), today.Outfit.Label())
	if len(days) > 1 {
		b.WriteString("توقعات الأيام الجاية:\n")
		for _, d := range days[1:] {
			fmt.Fprintf(&b, "- %s: %s°C، مطر %s مم، %s\n",
				d.Date.Format("2006-01-02"), formatTemp(d.MeanTemp), formatTemp(d.Precipitation), d.Outfit.Label())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func transcript(turns []store.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("المحادثة السابقة:\n")
	for _, t := range turns {
		speaker := "اليوزر"
		if t.Role == store.RoleAssistant {
			speaker = "انت"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, t.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func currentTurn(message string, hasImage bool) string {
	if message == "" {
		message = imageOnlyTurn
	}
	var b strings.Builder
	fmt.Fprintf(&b, "اليوزر بيقول: %s\n", message)
	if hasImage {
		fmt.Fprintf(&b, "\nفيه صورة مرفوعة مع الرسالة دي: حللها الأول وابدأ ردك بـ \"%s\"\n", imageReplyStart)
	}
	b.WriteString("\nرد دلوقتي.")
	return b.String()
}

func formatTemp(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
