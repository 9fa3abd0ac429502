package game

// Catalog resolves static game data by id.
type Catalog interface {
	Move(id int) (Move, bool)
	Ability(id int) (Ability, bool)
	// AbilityByCode resolves the obfuscated ability code carried by wild encounters.
	AbilityByCode(code string) (Ability, bool)
	Type(id int) (Type, bool)
	// Effectiveness is the damage factor of an attacking type against one defending type.
	Effectiveness(attack, defend int) float64
}
