package domain

import (
	"strings"
	"time"
)

// Category is an analysis dimension applied uniformly across documents.
// New categories can be added at any time and backfilled without touching
// other categories' results.
type Category struct {
	// ID is the store-assigned identifier.
	ID int64

	// Key is the stable identifier (e.g. "economia").
	Key string

	// Name is the display name (e.g. "Economía").
	Name string

	// Description explains what the category covers.
	Description string

	// PromptContext is extra guidance appended to the synthesis prompt.
	PromptContext string

	// SearchQuery is the retrieval query. Empty falls back to name and description.
	SearchQuery string

	// DisplayOrder sorts categories within a run.
	DisplayOrder int

	// Active categories participate in new runs.
	Active bool

	// CreatedAt is when the category was added.
	CreatedAt time.Time
}

// Query returns the natural-language retrieval query for the category.
func (c Category) Query() string {
	if q := strings.TrimSpace(c.SearchQuery); q != "" {
		return q
	}
	return strings.TrimSpace(c.Name + " " + c.Description)
}

// Validate checks the fields the store relies on.
func (c Category) Validate() error {
	if strings.TrimSpace(c.Key) == "" || strings.TrimSpace(c.Name) == "" {
		return ErrInvalidInput
	}
	return nil
}

// DefaultCategories returns the categories seeded by init, in display order.
func DefaultCategories() []Category {
	defs := []struct {
		key, name, description, query string
	}{
		{"educacion", "Educación", "Sistema educativo, infraestructura escolar, docentes y acceso a la educación",
			"propuestas sobre educación, escuelas, colegios, universidades, maestros, profesores, estudiantes, sistema educativo, primera infancia, MEP"},
		{"salud", "Salud", "Sistema de salud pública, CCSS, hospitales y atención médica",
			"propuestas sobre salud, hospitales, clínicas, médicos, CCSS, seguro social, medicina, atención médica, sistema de salud"},
		{"economia", "Economía", "Política económica, finanzas públicas y crecimiento",
			"propuestas económicas, finanzas públicas, presupuesto, PIB, crecimiento económico, desarrollo económico, política económica"},
		{"seguridad", "Seguridad", "Seguridad ciudadana, policía, crimen y sistema penitenciario",
			"propuestas sobre seguridad, policía, crimen, delincuencia, OIJ, cárceles, justicia penal, seguridad ciudadana"},
		{"empleo", "Empleo", "Generación de empleo, derechos laborales y salarios",
			"propuestas sobre empleo, trabajo, desempleo, trabajadores, salario, derechos laborales, mercado laboral"},
		{"medio_ambiente", "Medio Ambiente", "Conservación, cambio climático y energía",
			"propuestas ambientales, cambio climático, conservación, recursos naturales, energía renovable, sostenibilidad"},
		{"vivienda", "Vivienda", "Acceso a vivienda, bono de vivienda y urbanismo",
			"propuestas sobre vivienda, acceso a vivienda, bono de vivienda, construcción, urbanismo"},
		{"infraestructura", "Infraestructura", "Carreteras, transporte público y obras públicas",
			"propuestas de infraestructura, carreteras, puentes, transporte público, obras públicas"},
		{"tecnologia", "Tecnología", "Digitalización, conectividad e innovación",
			"propuestas tecnológicas, digitalización, conectividad, internet, innovación tecnológica"},
		{"corrupcion", "Corrupción", "Transparencia, rendición de cuentas y ética pública",
			"propuestas anticorrupción, transparencia, rendición de cuentas, ética pública, control interno"},
		{"derechos_humanos", "Derechos Humanos", "Igualdad, no discriminación y grupos vulnerables",
			"derechos humanos, igualdad, no discriminación, grupos vulnerables, inclusión social"},
		{"cultura", "Cultura", "Arte, patrimonio e identidad nacional",
			"propuestas culturales, arte, patrimonio cultural, identidad nacional, promoción cultural"},
		{"agricultura", "Agricultura", "Producción agrícola y sector agropecuario",
			"propuestas agrícolas, producción agrícola, campesinos, agro, sector agropecuario"},
	}

	cats := make([]Category, 0, len(defs))
	for i, d := range defs {
		cats = append(cats, Category{
			Key:          d.key,
			Name:         d.name,
			Description:  d.description,
			SearchQuery:  d.query,
			DisplayOrder: i + 1,
			Active:       true,
		})
	}
	return cats
}
