package catalog

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	ZoneTypeCities         = "ciudades"
	ZoneTypeMunicipalities = "municipios"
)

var cities = []string{
	"Achiras", "Adelia María", "Agua de Oro", "Alta Gracia",
	"Altos de Chipión", "Anisacate", "Arroyito", "Bell Ville",
	"Colonia Caroya", "Cosquín", "Cruz del Eje", "Deán Funes",
	"Estación Juárez Celman", "General Cabrera", "General Deheza",
	"Jesús María", "Laboulaye", "Las Varillas", "Leones",
	"Malagueño", "Malvinas Argentinas", "Marcos Juárez",
	"Mendiolaza", "Mina Clavero", "Montecristo", "Morteros",
	"Oliva", "Oncativo", "Pilar", "Río Ceballos", "Río Cuarto",
	"Río Primero", "Río Segundo", "Río Tercero", "Saldán",
	"San Francisco", "Santa María de Punilla", "Santa Rosa de Calamuchita",
	"Tanti", "Unquillo", "Vicuña Mackenna", "Villa Allende",
	"Villa Carlos Paz", "Villa Dolores", "Villa General Belgrano",
	"Villa María", "Villa Nueva", "Villa de Soto",
	"Villa del Rosario", "Villa del Totoral",
}

var municipalities = []string{
	"Achiras", "Adelia María", "Agua de Oro", "Altos de Chipión",
	"Anisacate", "Arias", "Arroyo Cabral", "Bialet Massé",
	"Calchín", "Camilo Aldao", "Carnerillo", "Cruz Alta",
	"Del Campillo", "Despeñaderos", "Devoto", "El Brete",
	"El Tío", "Etruria", "Falda del Carmen", "General Baldissera",
	"General Roca", "Guatimozín", "Huinca Renancó", "Laguna Larga",
	"Las Acequias", "Las Peñas", "Las Tapias", "Los Cerrillos",
	"Los Cóndores", "Los Surgentes", "Luyaba", "Mayu Sumaj",
	"Mi Granja", "Morteros", "Nicolás Bruzzone", "Noetinger",
	"Nono", "Obispo Trejo", "Ordóñez", "Pascanas",
	"Porteña", "Potrero de Garay", "Pozo del Molle", "Quilino",
	"Río Primero", "Sacanta", "Salsacate", "Salsipuedes",
	"San Carlos Minas", "San José", "San José de la Dormida",
	"San Lorenzo", "San Marcos Sierra", "San Marcos Sud",
	"San Pedro", "San Roque", "Santa Catalina Holmberg",
	"Santa Eufemia", "Saturnino María Laspiur", "Sebastián Elcano",
	"Serrezuela", "Sinsacate", "Tancacha", "Ticino",
	"Toledo", "Tránsito", "Ucacha", "Valle de Anisacate",
	"Valle Hermoso", "Viamonte", "Villa Allende", "Villa Ascasubi",
	"Villa Candelaria Norte", "Villa Cura Brochero", "Villa Giardino",
	"Villa Huidobro", "Villa Parque Santa Ana", "Villa Parque Síquiman",
	"Villa Rumipal", "Villa Río Icho Cruz", "Villa Santa Cruz del Lago",
	"Villa Sarmiento", "Villa Valeria", "Villa Yacanto",
	"Villa de las Rosas", "Villa del Dique", "Villa del Prado",
}

var popularZones = []string{
	"Villa Carlos Paz",
	"Alta Gracia",
	"Cosquín",
	"Río Cuarto",
	"Villa María",
	"Cruz del Eje",
	"Bell Ville",
	"Jesús María",
}

// ZoneStats - сводка по справочнику зон.
type ZoneStats struct {
	Total          int    `json:"total"`
	Cities         int    `json:"cities"`
	Municipalities int    `json:"municipalities"`
	Coverage       string `json:"coverage"`
}

var (
	allZones             []string
	zoneSet              map[string]struct{}
	sortedCities         []string
	sortedMunicipalities []string
)

func init() {
	zoneSet = make(map[string]struct{}, len(cities)+len(municipalities))
	for _, list := range [][]string{cities, municipalities} {
		for _, z := range list {
			if _, dup := zoneSet[z]; dup {
				continue
			}
			zoneSet[z] = struct{}{}
			allZones = append(allZones, z)
		}
	}

	allZones = sortSpanish(allZones)
	sortedCities = sortSpanish(cities)
	sortedMunicipalities = sortSpanish(municipalities)
}

// sortSpanish сортирует копию списка по правилам испанского алфавита.
func sortSpanish(list []string) []string {
	out := clone(list)
	collate.New(language.Spanish).SortStrings(out)
	return out
}

// AllZones возвращает все зоны без повторов в алфавитном порядке.
func AllZones() []string {
	return clone(allZones)
}

func SearchZones(term string) []string {
	return filterContains(allZones, term)
}

// ZonesByType возвращает города или муниципии. Неизвестный тип даёт все зоны.
func ZonesByType(kind string) []string {
	switch kind {
	case ZoneTypeCities:
		return clone(sortedCities)
	case ZoneTypeMunicipalities:
		return clone(sortedMunicipalities)
	}
	return AllZones()
}

func ValidateZone(zone string) bool {
	_, ok := zoneSet[zone]
	return ok
}

func PopularZones() []string {
	return clone(popularZones)
}

func Stats() ZoneStats {
	return ZoneStats{
		Total:          len(allZones),
		Cities:         len(cities),
		Municipalities: len(municipalities),
		Coverage:       "100% de la provincia de Córdoba",
	}
}
