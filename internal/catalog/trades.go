// Package catalog содержит справочники специальностей и зон провинции Córdoba.
package catalog

import "strings"

// Category - группа специальностей.
type Category struct {
	Name   string   `json:"name"`
	Trades []string `json:"trades"`
	Total  int      `json:"total"`
}

// categories задаёт порядок категорий и специальностей внутри них.
var categories = []Category{
	{Name: "Construcción y Mantenimiento", Trades: []string{
		"Albañil", "Carpintero", "Plomero", "Electricista", "Gasista",
		"Cerrajero", "Pintor", "Soldador", "Herrero", "Vidriero",
	}},
	{Name: "Automotriz", Trades: []string{
		"Mecánico de autos", "Mecánico de motos", "Mecánico (general)",
		"Gomero (especialista en neumáticos)",
	}},
	{Name: "Alimentación", Trades: []string{
		"Panadero", "Carnicero", "Pescador", "Cocinero", "Repostero", "Quesero",
	}},
	{Name: "Servicios Personales", Trades: []string{
		"Estilista/Peluquero", "Depiladora", "Fotógrafo", "Guías de cabalgata",
		"Guia Turistico", "Guia de Montaña",
	}},
	{Name: "Textil y Confección", Trades: []string{
		"Sastre", "Modista", "Zapatero", "Tapicero",
	}},
	{Name: "Jardinería y Exterior", Trades: []string{
		"Jardinero", "Auxiliar de jardinería",
	}},
	{Name: "Transporte", Trades: []string{
		"Chofer", "Camionero", "Cadete",
	}},
	{Name: "Técnico", Trades: []string{
		"Técnico electrónico", "Técnico en refrigeración", "Instalador de alarmas",
		"Montador de paneles solares", "Montador de cristales y vidrios",
	}},
	{Name: "Industrial", Trades: []string{
		"Maquinista", "Tornero", "Operador de fábrica", "Operario logístico",
	}},
	{Name: "Servicios Generales", Trades: []string{
		"Auxiliar de limpieza", "Sereno/Personal de seguridad", "limpieza de Piletas",
		"Lavadero de Autos/Motos",
	}},
	{Name: "Administrativo", Trades: []string{
		"Cajero", "Auxiliar administrativo", "Auxiliar contable",
	}},
	{Name: "Salud", Trades: []string{
		"Auxiliar de enfermería", "Auxiliar de cocina",
	}},
	{Name: "Profesional", Trades: []string{
		"Abogado",
	}},
	{Name: "Agropecuario", Trades: []string{
		"Ganadero",
	}},
}

var popularTrades = []string{
	"Plomero",
	"Electricista",
	"Albañil",
	"Mecánico de autos",
	"Jardinero",
	"Pintor",
	"Carpintero",
	"Auxiliar de limpieza",
}

var (
	allTrades     []string
	tradeCategory map[string]string
)

func init() {
	tradeCategory = make(map[string]string)
	for i := range categories {
		categories[i].Total = len(categories[i].Trades)
		for _, trade := range categories[i].Trades {
			allTrades = append(allTrades, trade)
			tradeCategory[trade] = categories[i].Name
		}
	}
}

// AllTrades возвращает все специальности в порядке категорий.
func AllTrades() []string {
	return clone(allTrades)
}

// SearchTrades ищет подстроку без учёта регистра. Пустой запрос возвращает всё.
func SearchTrades(term string) []string {
	return filterContains(allTrades, term)
}

// TradesByCategory возвращает специальности категории или пустой список.
func TradesByCategory(name string) []string {
	for _, c := range categories {
		if c.Name == name {
			return clone(c.Trades)
		}
	}
	return []string{}
}

func Categories() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		out[i] = Category{Name: c.Name, Trades: clone(c.Trades), Total: c.Total}
	}
	return out
}

func PopularTrades() []string {
	return clone(popularTrades)
}

func IsValidTrade(trade string) bool {
	_, ok := tradeCategory[trade]
	return ok
}

// CategoryOf возвращает категорию специальности.
func CategoryOf(trade string) (string, bool) {
	name, ok := tradeCategory[trade]
	return name, ok
}

// RelatedTrades возвращает остальные специальности той же категории.
func RelatedTrades(trade string) []string {
	name, ok := tradeCategory[trade]
	if !ok {
		return []string{}
	}
	related := make([]string, 0)
	for _, t := range TradesByCategory(name) {
		if t != trade {
			related = append(related, t)
		}
	}
	return related
}

func filterContains(list []string, term string) []string {
	if term == "" {
		return clone(list)
	}
	needle := strings.ToLower(term)
	out := make([]string, 0)
	for _, item := range list {
		if strings.Contains(strings.ToLower(item), needle) {
			out = append(out, item)
		}
	}
	return out
}

func clone(list []string) []string {
	return append([]string(nil), list...)
}
