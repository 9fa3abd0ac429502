// Package staticdata loads the move, ability and type tables from the
// community CSV dumps (moves.csv, abilities.csv, types.csv, type_efficacy.csv).
package staticdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"planetbot/internal/adapter/protocol"
	"planetbot/internal/domain/game"
)

// abilityKey salts the ability codes carried by wild encounters.
const abilityKey = "asion1asfonapsfobq1n12iofrasnfra"

var ErrMissingColumn = errors.New("missing column")

type Catalog struct {
	moves     map[int]game.Move
	abilities map[int]game.Ability
	codes     map[string]int
	types     map[int]game.Type
	effect    map[[2]int]float64
}

var _ game.Catalog = (*Catalog)(nil)

func Load(dir string) (*Catalog, error) {
	return LoadFS(os.DirFS(dir))
}

func LoadFS(fsys fs.FS) (*Catalog, error) {
	c := &Catalog{
		moves:     map[int]game.Move{},
		abilities: map[int]game.Ability{},
		codes:     map[string]int{},
		types:     map[int]game.Type{},
		effect:    map[[2]int]float64{},
	}
	steps := []struct {
		file string
		fn   func(row) error
	}{
		{"types.csv", c.addType},
		{"moves.csv", c.addMove},
		{"abilities.csv", c.addAbility},
		{"type_efficacy.csv", c.addEffect},
	}
	for _, s := range steps {
		if err := readCSV(fsys, s.file, s.fn); err != nil {
			return nil, err
		}
	}
	return c, nil
}

var title = cases.Title(language.English)

// displayName turns "thunder-punch" into "Thunder Punch".
func displayName(identifier string) string {
	return title.String(strings.ReplaceAll(identifier, "-", " "))
}

type row struct {
	cols   map[string]int
	fields []string
	line   int
}

func (r row) str(name string) (string, error) {
	i, ok := r.cols[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrMissingColumn)
	}
	if i >= len(r.fields) {
		return "", nil
	}
	return strings.TrimSpace(r.fields[i]), nil
}

// integer parses a column, returning def for blank cells.
func (r row) integer(name string, def int) (int, error) {
	s, err := r.str(name)
	if err != nil {
		return 0, err
	}
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("line %d %s: %w", r.line, name, err)
	}
	return n, nil
}

func readCSV(fsys fs.FS, name string, fn func(row) error) error {
	f, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1
	header, err := rd.Read()
	if err != nil {
		return fmt.Errorf("read %s header: %w", name, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for line := 2; ; line++ {
		fields, err := rd.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := fn(row{cols: cols, fields: fields, line: line}); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
}

func (c *Catalog) addType(r row) error {
	id, err := r.integer("id", 0)
	if err != nil {
		return err
	}
	ident, err := r.str("identifier")
	if err != nil {
		return err
	}
	c.types[id] = game.Type{ID: id, Name: displayName(ident)}
	return nil
}

func (c *Catalog) addMove(r row) error {
	id, err := r.integer("id", 0)
	if err != nil {
		return err
	}
	ident, err := r.str("identifier")
	if err != nil {
		return err
	}
	typeID, err := r.integer("type_id", 0)
	if err != nil {
		return err
	}
	power, err := r.integer("power", 0)
	if err != nil {
		return err
	}
	accuracy, err := r.integer("accuracy", 100)
	if err != nil {
		return err
	}
	pp, err := r.integer("pp", 0)
	if err != nil {
		return err
	}
	t := c.types[typeID]
	if t.ID == 0 {
		t = game.Type{ID: typeID}
	}
	c.moves[id] = game.Move{
		ID:       id,
		Name:     displayName(ident),
		Type:     t,
		Power:    power,
		Accuracy: accuracy,
		PP:       pp,
	}
	return nil
}

func (c *Catalog) addAbility(r row) error {
	id, err := r.integer("id", 0)
	if err != nil {
		return err
	}
	ident, err := r.str("identifier")
	if err != nil {
		return err
	}
	c.abilities[id] = game.Ability{ID: id, Name: displayName(ident)}
	c.codes[AbilityCode(id)] = id
	return nil
}

func (c *Catalog) addEffect(r row) error {
	attack, err := r.integer("damage_type_id", 0)
	if err != nil {
		return err
	}
	defend, err := r.integer("target_type_id", 0)
	if err != nil {
		return err
	}
	factor, err := r.integer("damage_factor", 100)
	if err != nil {
		return err
	}
	c.effect[[2]int{attack, defend}] = float64(factor) / 100
	return nil
}

// AbilityCode is the obfuscated form of an ability id used by the server.
func AbilityCode(id int) string {
	return protocol.MD5Hex(strconv.Itoa(id) + abilityKey)
}

func (c *Catalog) Move(id int) (game.Move, bool) {
	m, ok := c.moves[id]
	return m, ok
}

func (c *Catalog) Ability(id int) (game.Ability, bool) {
	a, ok := c.abilities[id]
	return a, ok
}

func (c *Catalog) AbilityByCode(code string) (game.Ability, bool) {
	id, ok := c.codes[code]
	if !ok {
		return game.Ability{}, false
	}
	return c.abilities[id], true
}

func (c *Catalog) Type(id int) (game.Type, bool) {
	t, ok := c.types[id]
	return t, ok
}

// Effectiveness defaults to neutral for pairs missing from the table.
func (c *Catalog) Effectiveness(attack, defend int) float64 {
	if f, ok := c.effect[[2]int{attack, defend}]; ok {
		return f
	}
	return 1
}

// MoveByName is a linear lookup used by catch rules that name a move.
func (c *Catalog) MoveByName(name string) (game.Move, bool) {
	for _, m := range c.moves {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return game.Move{}, false
}
