package models

// Achievement is a static achievement definition. The catalog below is
// process-wide constant data; IDs are stable because stores and rendered
// messages refer to them.
type Achievement struct {
	ID   string
	Icon string
	Name string
	Desc string
}

// Achievements is the full achievement catalog, in display order
var Achievements = []Achievement{
	{ID: "primera_lectura", Icon: "🌟", Name: "Primera Aventura", Desc: "¡Leíste tu primer libro!"},
	{ID: "racha_3", Icon: "🔥", Name: "En Llamas", Desc: "3 días seguidos leyendo"},
	{ID: "racha_7", Icon: "⚡", Name: "Súper Lectora", Desc: "7 días seguidos leyendo"},
	{ID: "explorador_5", Icon: "🗺️", Name: "Exploradora", Desc: "5 libros diferentes"},
	{ID: "explorador_20", Icon: "🧭", Name: "Gran Exploradora", Desc: "20 libros diferentes"},
	{ID: "favoritos_3", Icon: "💖", Name: "Coleccionista", Desc: "3 libros favoritos"},
	{ID: "libro_largo", Icon: "📚", Name: "Maratonista", Desc: "Libro de +15 minutos"},
	{ID: "nocturna", Icon: "🌙", Name: "Lectura Nocturna", Desc: "Leer después de las 8pm"},
	{ID: "madrugadora", Icon: "🌅", Name: "Madrugadora", Desc: "Leer antes de las 9am"},
}

// AchievementByID looks up an achievement definition by its stable ID
func AchievementByID(id string) (Achievement, bool) {
	for _, a := range Achievements {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// Level is one tier of the reader level ladder. MinReads is the
// cumulative times-read sum required to reach it.
type Level struct {
	Number   int
	Name     string
	Icon     string
	MinReads int
}

// Levels is the fixed level ladder, ordered by threshold
var Levels = []Level{
	{Number: 1, Name: "Semillita", Icon: "🌱", MinReads: 0},
	{Number: 2, Name: "Brote", Icon: "🌿", MinReads: 5},
	{Number: 3, Name: "Florcita", Icon: "🌸", MinReads: 15},
	{Number: 4, Name: "Árbol", Icon: "🌳", MinReads: 30},
	{Number: 5, Name: "Bosque Mágico", Icon: "🏰", MinReads: 50},
	{Number: 6, Name: "Reina Lectora", Icon: "👑", MinReads: 100},
}

// MetricType identifies what a weekly challenge measures
type MetricType string

const (
	MetricDistinctDays MetricType = "dias_lectura" // distinct calendar days with a read
	MetricTotalMinutes MetricType = "minutos"      // sum of duration over the week's reads
	MetricFirstReads   MetricType = "libro_nuevo"  // books read for the first time ever
	MetricFavorites    MetricType = "favorito"     // favorite books read this week
	MetricReadEvents   MetricType = "lecturas"     // total read events this week
)

// Challenge is a static weekly challenge definition
type Challenge struct {
	ID     string
	Name   string
	Desc   string
	Metric MetricType
	Goal   int
	Reward string
}

// Challenges is the catalog the weekly assignment is drawn from
var Challenges = []Challenge{
	{ID: "leer_3_dias", Name: "📚 Lectora Constante", Desc: "Lee 3 días esta semana", Metric: MetricDistinctDays, Goal: 3, Reward: "🌟 Estrella Brillante"},
	{ID: "leer_5_dias", Name: "📖 Súper Lectora", Desc: "Lee 5 días esta semana", Metric: MetricDistinctDays, Goal: 5, Reward: "👑 Corona Dorada"},
	{ID: "libro_nuevo", Name: "🆕 Exploradora", Desc: "Lee un libro que nunca hayas leído", Metric: MetricFirstReads, Goal: 1, Reward: "🗺️ Mapa del Tesoro"},
	{ID: "dos_libros_nuevos", Name: "🧭 Gran Exploradora", Desc: "Lee 2 libros nuevos esta semana", Metric: MetricFirstReads, Goal: 2, Reward: "🏆 Trofeo Aventura"},
	{ID: "leer_20_min", Name: "⏱️ Mini Maratón", Desc: "Lee 20 minutos en total esta semana", Metric: MetricTotalMinutes, Goal: 20, Reward: "🏃 Zapatillas Mágicas"},
	{ID: "leer_45_min", Name: "🏅 Gran Maratón", Desc: "Lee 45 minutos en total esta semana", Metric: MetricTotalMinutes, Goal: 45, Reward: "🥇 Medalla de Oro"},
	{ID: "favorito_nuevo", Name: "💖 Coleccionista", Desc: "Marca un libro como favorito", Metric: MetricFavorites, Goal: 1, Reward: "💎 Diamante Rosa"},
	{ID: "tres_lecturas", Name: "📚 Triple Lectura", Desc: "Lee 3 veces esta semana", Metric: MetricReadEvents, Goal: 3, Reward: "🎀 Lazo Especial"},
}

// ChallengeByID looks up a challenge definition by its stable ID
func ChallengeByID(id string) (Challenge, bool) {
	for _, c := range Challenges {
		if c.ID == id {
			return c, true
		}
	}
	return Challenge{}, false
}
