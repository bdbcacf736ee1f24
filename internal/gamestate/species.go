package gamestate

// UnknownSpecies is the name substituted for species ids outside the
// table. Corrupt or transient memory must never fail a decode.
const UnknownSpecies = "Unknown"

// speciesNames is indexed by the Game Boy internal species id (0-190),
// which is not National Dex order. Ids the game never assigns hold the
// Missingno placeholder.
var speciesNames = [...]string{
	"None", "Rhydon", "Kangaskhan", "Nidoran♂", "Clefairy", "Spearow",
	"Voltorb", "Nidoking", "Slowbro", "Ivysaur", "Exeggutor", "Lickitung",
	"Exeggcute", "Grimer", "Gengar", "Nidoran♀", "Nidoqueen", "Cubone",
	"Rhyhorn", "Lapras", "Arcanine", "Mew", "Gyarados", "Shellder",
	"Tentacool", "Gastly", "Scyther", "Staryu", "Blastoise", "Pinsir",
	"Tangela", "Missingno", "Missingno", "Growlithe", "Onix", "Fearow",
	"Pidgey", "Slowpoke", "Kadabra", "Graveler", "Chansey", "Machoke",
	"Mr. Mime", "Hitmonlee", "Hitmonchan", "Arbok", "Parasect", "Psyduck",
	"Drowzee", "Golem", "Missingno", "Magmar", "Missingno", "Electabuzz",
	"Magneton", "Koffing", "Missingno", "Mankey", "Seel", "Diglett",
	"Tauros", "Missingno", "Missingno", "Missingno", "Farfetch'd", "Venonat",
	"Dragonite", "Missingno", "Missingno", "Missingno", "Doduo", "Poliwag",
	"Jynx", "Moltres", "Articuno", "Zapdos", "Ditto", "Meowth",
	"Krabby", "Missingno", "Missingno", "Missingno", "Vulpix", "Ninetales",
	"Pikachu", "Raichu", "Missingno", "Missingno", "Dratini", "Dragonair",
	"Kabuto", "Kabutops", "Horsea", "Seadra", "Missingno", "Missingno",
	"Sandshrew", "Sandslash", "Omanyte", "Omastar", "Jigglypuff", "Wigglytuff",
	"Eevee", "Flareon", "Jolteon", "Vaporeon", "Machop", "Zubat",
	"Ekans", "Parasect", "Poliwhirl", "Poliwrath", "Weedle", "Kakuna",
	"Beedrill", "Missingno", "Dodrio", "Primeape", "Dugtrio", "Venomoth",
	"Dewgong", "Missingno", "Missingno", "Caterpie", "Metapod", "Butterfree",
	"Machamp", "Missingno", "Golduck", "Hypno", "Golbat", "Mewtwo",
	"Snorlax", "Magikarp", "Missingno", "Missingno", "Muk", "Missingno",
	"Kingler", "Cloyster", "Missingno", "Electrode", "Clefable", "Weezing",
	"Persian", "Marowak", "Missingno", "Haunter", "Abra", "Alakazam",
	"Pidgeotto", "Pidgeot", "Starmie", "Bulbasaur", "Venusaur", "Tentacruel",
	"Missingno", "Goldeen", "Seaking", "Missingno", "Missingno", "Missingno",
	"Missingno", "Ponyta", "Rapidash", "Rattata", "Raticate", "Nidorino",
	"Nidorina", "Geodude", "Porygon", "Aerodactyl", "Missingno", "Magnemite",
	"Missingno", "Missingno", "Charmander", "Squirtle", "Charmeleon", "Wartortle",
	"Charizard", "Missingno", "Missingno", "Missingno", "Missingno", "Oddish",
	"Gloom", "Vileplume", "Bellsprout", "Weepinbell", "Victreebel",
}

// SpeciesName resolves an internal species id to its display name.
func SpeciesName(id int) string {
	if id < 0 || id >= len(speciesNames) {
		return UnknownSpecies
	}
	return speciesNames[id]
}
