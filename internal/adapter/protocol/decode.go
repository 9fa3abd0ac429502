package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"planetbot/internal/domain/game"
	"planetbot/internal/domain/world"
)

// Markers inside the bootstrap payload.
const (
	markInventoryEnd = ")()(09a0jd"
	markMemberInfo   = ")()(09a0jc"
	markTeamEnd      = ")()(09a0jb"
	markSkills       = ")()(09a0js"

	// Fields between the clan and the first team record.
	clanToTeamGap = 13
	// Team records carry at least this many comma fields.
	teamRecordFields = 39
)

// Inbound action names.
const (
	ActionApiOK       = "apiOK"
	ActionRoomList    = "rmList"
	ActionJoinOK      = "joinOK"
	ActionLogin       = "l"
	ActionBootstrap   = "r10"
	ActionMapInfo     = "b88"
	ActionMapUpdate   = "b5"
	ActionPublicChat  = "pmsg"
	ActionPlayerAdd   = "a"
	ActionPlayerBack  = "b"
	ActionWild        = "w"
	ActionWildResume  = "w2"
	ActionBattleTurn  = "c"
	ActionNotice      = "r17"
	ActionExtResponse = "xtRes"
	ActionTeamUpdate  = "ui"
	ActionItemGiven   = "r4"
	ActionItemTaken   = "r5"
	ActionPrivateChat = "r36"
	ActionClanChat    = "r59"
	ActionPlayerLeft  = "r62"
	ActionHook        = "b121"
	ActionItemAdd     = "b86"
	ActionItemRemove  = "b87"
	ActionFullHeal    = "b95"
	ActionRockEmpty   = "b164"
	ActionRockRefill  = "b165"
	ActionBattleReq   = "b179"
	ActionTradeReq    = "b185"
	ActionUserGone    = "userGone"

	// CodeOK is the success code of protocol replies.
	CodeOK = "-1"
)

// Commands carried by extension responses.
const (
	ExtAskEvolve       = "askEvolve"
	ExtLearnMove       = "learnMove"
	ExtClanRequest     = "clanRequest"
	ExtUpdateInventory = "updateInventory"
	ExtBuyItem         = "buyItem"
	ExtWatchOn         = "b2adb2"
	ExtWatchOff        = "b2adb2z"
)

func malformed(what string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w: %v", what, ErrMalformed, err)
	}
	return fmt.Errorf("%s: %w", what, ErrMalformed)
}

type segReader struct {
	segs []string
	what string
}

func (r segReader) str(i int) (string, error) {
	if i < 0 || i >= len(r.segs) {
		return "", malformed(fmt.Sprintf("%s segment %d", r.what, i), nil)
	}
	return r.segs[i], nil
}

func (r segReader) integer(i int) (int, error) {
	s, err := r.str(i)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, malformed(fmt.Sprintf("%s segment %d", r.what, i), err)
	}
	return n, nil
}

func (r segReader) float(i int) (float64, error) {
	s, err := r.str(i)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, malformed(fmt.Sprintf("%s segment %d", r.what, i), err)
	}
	return f, nil
}

// find returns the index after the first marker at or after from.
func (r segReader) find(from int, marker string) (int, error) {
	for i := from; i < len(r.segs); i++ {
		if r.segs[i] == marker {
			return i + 1, nil
		}
	}
	return 0, malformed(fmt.Sprintf("%s marker %q", r.what, marker), nil)
}

// Bootstrap is the player record pushed after game login.
type Bootstrap struct {
	Money            int
	Credits          int
	Inventory        []game.ItemCount
	Badges           []string
	Pos              world.Point
	RawMap           string
	CreationEpoch    int64
	CharacterCreated int
	Membership       string
	MembershipTime   int64
	Clan             string
	Team             []game.Pokemon
	SpeedMod         float64
	FishingLevel     int
	FishingExp       int
	MiningLevel      int
}

func DecodeBootstrap(m Message, cat game.Catalog) (Bootstrap, error) {
	r := segReader{segs: m.segments, what: "bootstrap"}
	var (
		b   Bootstrap
		err error
	)
	if b.Money, err = r.integer(4); err != nil {
		return Bootstrap{}, err
	}
	if b.Credits, err = r.integer(5); err != nil {
		return Bootstrap{}, err
	}

	n := 6
	for ; n < len(r.segs) && r.segs[n] != markInventoryEnd; n++ {
		item, err := decodeItemCount(r.segs[n])
		if err != nil {
			return Bootstrap{}, err
		}
		b.Inventory = append(b.Inventory, item)
	}
	if n >= len(r.segs) {
		return Bootstrap{}, malformed("bootstrap inventory marker", nil)
	}
	n++

	badges, err := r.str(n)
	if err != nil {
		return Bootstrap{}, err
	}
	if badges != "" {
		b.Badges = strings.Split(badges, ",")
	}
	if b.Pos.X, err = r.integer(n + 1); err != nil {
		return Bootstrap{}, err
	}
	if b.Pos.Y, err = r.integer(n + 2); err != nil {
		return Bootstrap{}, err
	}
	if b.RawMap, err = r.str(n + 3); err != nil {
		return Bootstrap{}, err
	}

	if n, err = r.find(n+4, markMemberInfo); err != nil {
		return Bootstrap{}, err
	}
	epoch, err := r.integer(n)
	if err != nil {
		return Bootstrap{}, err
	}
	b.CreationEpoch = int64(epoch)
	if b.CharacterCreated, err = r.integer(n + 2); err != nil {
		return Bootstrap{}, err
	}
	if b.Membership, err = r.str(n + 3); err != nil {
		return Bootstrap{}, err
	}
	mt, err := r.integer(n + 4)
	if err != nil {
		return Bootstrap{}, err
	}
	b.MembershipTime = int64(mt)
	if b.Clan, err = r.str(n + 5); err != nil {
		return Bootstrap{}, err
	}
	if b.Clan == "0" {
		b.Clan = ""
	}

	n += 5 + clanToTeamGap
	for ; n < len(r.segs) && r.segs[n] != markTeamEnd; n++ {
		p, err := DecodePokemon(strings.NewReplacer("[", "", "]", "").Replace(r.segs[n]), cat)
		if err != nil {
			return Bootstrap{}, err
		}
		b.Team = append(b.Team, p)
	}
	if n >= len(r.segs) {
		return Bootstrap{}, malformed("bootstrap team marker", nil)
	}

	if n, err = r.find(n, markSkills); err != nil {
		return Bootstrap{}, err
	}
	b.SpeedMod = 1
	boosted, err := r.float(n + 9)
	if err != nil {
		return Bootstrap{}, err
	}
	if boosted > 0 {
		mod, err := r.float(n + 8)
		if err != nil {
			return Bootstrap{}, err
		}
		if mod == 2 || mod == 0.5 {
			b.SpeedMod = mod
		}
	}
	if b.FishingLevel, err = r.integer(n + 10); err != nil {
		return Bootstrap{}, err
	}
	if b.FishingExp, err = r.integer(n + 11); err != nil {
		return Bootstrap{}, err
	}
	if lvl, err := r.integer(n + 12); err == nil {
		b.MiningLevel = lvl
	}
	return b, nil
}

func decodeItemCount(s string) (game.ItemCount, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return game.ItemCount{}, malformed(fmt.Sprintf("item %q", s), nil)
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return game.ItemCount{}, malformed(fmt.Sprintf("item %q", s), err)
	}
	return game.ItemCount{Name: parts[0], Count: n}, nil
}

// DecodePokemon reads one comma separated team record without brackets.
func DecodePokemon(record string, cat game.Catalog) (game.Pokemon, error) {
	f := strings.Split(record, ",")
	if len(f) < teamRecordFields {
		return game.Pokemon{}, malformed(fmt.Sprintf("team record has %d fields", len(f)), nil)
	}
	ints := make([]int, 33)
	for _, i := range []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 21, 22, 23, 24, 25, 26, 27, 28, 29, 31, 32} {
		v, err := strconv.Atoi(strings.TrimSpace(f[i]))
		if err != nil {
			return game.Pokemon{}, malformed(fmt.Sprintf("team record field %d", i), err)
		}
		ints[i] = v
	}
	uuid, err := strconv.ParseInt(strings.TrimSpace(f[0]), 10, 64)
	if err != nil {
		return game.Pokemon{}, malformed("team record uuid", err)
	}
	abilityID, err := strconv.Atoi(strings.TrimSpace(f[35]))
	if err != nil {
		return game.Pokemon{}, malformed("team record ability", err)
	}

	stats := func(base int) game.Stats {
		return game.Stats{
			SpDef:   ints[base],
			SpAtk:   ints[base+1],
			Speed:   ints[base+2],
			Defense: ints[base+3],
			Attack:  ints[base+4],
			HP:      ints[base+5],
		}
	}
	p := game.Pokemon{
		UUID:      uuid,
		Happiness: ints[1],
		Stats:     stats(2),
		EVs:       stats(8),
		IVs:       stats(14),
		Nature:    f[20],
		Type1:     resolveType(cat, ints[26]),
		Type2:     resolveType(cat, ints[25]),
		CurrentHP: ints[27],
		TotalExp:  ints[28],
		LevelExp:  ints[29],
		Shiny:     f[30] == "true",
		Level:     ints[31],
		ID:        ints[32],
		Name:      f[33],
		Item:      f[34],
		Ailment:   f[36],
		Catcher:   f[38],
	}
	if a, ok := cat.Ability(abilityID); ok {
		p.Ability = a
	} else {
		p.Ability = game.Ability{ID: abilityID}
	}
	for _, i := range []int{21, 22, 23, 24} {
		if ints[i] == 0 {
			continue
		}
		mv, ok := cat.Move(ints[i])
		if !ok {
			mv = game.Move{ID: ints[i], Accuracy: 100}
		}
		p.Moves = append(p.Moves, mv)
	}
	return p, nil
}

func resolveType(cat game.Catalog, id int) game.Type {
	if id == 0 {
		return game.Type{}
	}
	if t, ok := cat.Type(id); ok {
		return t
	}
	return game.Type{ID: id}
}

// DecodeTeam reads "[rec],[rec]" team lists.
func DecodeTeam(s string, cat game.Catalog) ([]game.Pokemon, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var team []game.Pokemon
	for _, rec := range strings.Split(s, "],") {
		rec = strings.NewReplacer("[", "", "]", "").Replace(rec)
		p, err := DecodePokemon(rec, cat)
		if err != nil {
			return nil, err
		}
		team = append(team, p)
	}
	return team, nil
}

// DecodeInventory reads "[[name,count],[name,count]]" lists.
func DecodeInventory(s string) ([]game.ItemCount, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []game.ItemCount
	for _, it := range strings.Split(s, "],") {
		it = strings.Trim(strings.TrimSpace(it), "[]")
		if it == "" {
			continue
		}
		item, err := decodeItemCount(it)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// TeamUpdate is the bulk inventory and team replace.
type TeamUpdate struct {
	Inventory []game.ItemCount
	Team      []game.Pokemon
}

func DecodeTeamUpdate(m Message, cat game.Catalog) (TeamUpdate, error) {
	r := segReader{segs: m.segments, what: "team update"}
	inv, err := r.str(4)
	if err != nil {
		return TeamUpdate{}, err
	}
	team, err := r.str(5)
	if err != nil {
		return TeamUpdate{}, err
	}
	var u TeamUpdate
	if u.Inventory, err = DecodeInventory(inv); err != nil {
		return TeamUpdate{}, err
	}
	if u.Team, err = DecodeTeam(team, cat); err != nil {
		return TeamUpdate{}, err
	}
	return u, nil
}

// DecodeEncounter reads the wild battle start frame.
func DecodeEncounter(m Message, cat game.Catalog) (game.WildEncounter, error) {
	r := segReader{segs: m.segments, what: "encounter"}
	rec, err := r.str(4)
	if err != nil {
		return game.WildEncounter{}, err
	}
	f := strings.Split(rec, ",")
	if len(f) < 12 {
		return game.WildEncounter{}, malformed(fmt.Sprintf("encounter has %d fields", len(f)), nil)
	}
	num := func(i int) (int, error) {
		v, err := strconv.Atoi(strings.TrimSpace(f[i]))
		if err != nil {
			return 0, malformed(fmt.Sprintf("encounter field %d", i), err)
		}
		return v, nil
	}
	var w game.WildEncounter
	if w.CurrentHP, err = num(0); err != nil {
		return game.WildEncounter{}, err
	}
	if w.MaxHP, err = num(1); err != nil {
		return game.WildEncounter{}, err
	}
	w.Name = f[2]
	if w.ID, err = num(3); err != nil {
		return game.WildEncounter{}, err
	}
	w.Shiny = f[4] == "true"
	if w.Level, err = num(5); err != nil {
		return game.WildEncounter{}, err
	}
	if a, ok := cat.AbilityByCode(f[6]); ok {
		w.Ability = a
	}
	w.Ailment = f[7]
	w.Form = f[8]
	w.Elite = f[9] == "true"
	t1, err := num(10)
	if err != nil {
		return game.WildEncounter{}, err
	}
	t2, err := num(11)
	if err != nil {
		return game.WildEncounter{}, err
	}
	w.Type1 = resolveType(cat, t1)
	w.Type2 = resolveType(cat, t2)

	if boosts, ok := m.Segment(14); ok {
		w.Sync = decodeSync(boosts)
	}
	return w, nil
}

// decodeSync reads element 4 of the boost list "[[a],[b],...]". "[NaN]" or a
// missing element means no sync.
func decodeSync(boosts string) bool {
	s := strings.ReplaceAll(boosts, "[[", "[")
	s = strings.ReplaceAll(s, "]]", "]")
	parts := strings.Split(s, "],[")
	if len(parts) < 5 {
		return false
	}
	v := strings.Trim(parts[4], "[]")
	if first, _, found := strings.Cut(v, ","); found {
		v = first
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return err == nil && n == 1
}

type Outcome int

const (
	OutcomeContinue Outcome = iota
	OutcomeWon
	OutcomeLost
)

type LogLine struct {
	Text   string
	Damage string
}

// BattleTurn is one resolved battle round.
type BattleTurn struct {
	Outcome Outcome
	// Money is the new balance after a win. Zero means no payout.
	Money  int
	Team   []game.Pokemon
	Log    []LogLine
	Update game.EncounterUpdate
}

func DecodeBattleTurn(m Message, cat game.Catalog) (BattleTurn, error) {
	r := segReader{segs: m.segments, what: "battle turn"}
	var t BattleTurn

	team, err := r.str(12)
	if err != nil {
		return BattleTurn{}, err
	}
	if t.Team, err = DecodeTeam(team, cat); err != nil {
		return BattleTurn{}, err
	}

	logs, err := r.str(11)
	if err != nil {
		return BattleTurn{}, err
	}
	if logs != "" {
		for _, line := range strings.Split(logs, "|") {
			text, dmg, _ := strings.Cut(line, ",")
			t.Log = append(t.Log, LogLine{Text: text, Damage: dmg})
		}
	}

	upd, err := r.str(13)
	if err != nil {
		return BattleTurn{}, err
	}
	if t.Update, err = decodeEncounterUpdate(upd); err != nil {
		return BattleTurn{}, err
	}

	result, err := r.str(4)
	if err != nil {
		return BattleTurn{}, err
	}
	lost, err := r.str(7)
	if err != nil {
		return BattleTurn{}, err
	}
	switch {
	case result == "W":
		t.Outcome = OutcomeWon
		if t.Money, err = r.integer(10); err != nil {
			return BattleTurn{}, err
		}
	case lost == "1":
		t.Outcome = OutcomeLost
	}
	return t, nil
}

func decodeEncounterUpdate(s string) (game.EncounterUpdate, error) {
	f := strings.Split(s, ",")
	if len(f) < 10 {
		return game.EncounterUpdate{}, malformed(fmt.Sprintf("encounter update has %d fields", len(f)), nil)
	}
	maxHP, err := strconv.Atoi(strings.TrimSpace(f[8]))
	if err != nil {
		return game.EncounterUpdate{}, malformed("encounter update max hp", err)
	}
	cur, err := strconv.Atoi(strings.TrimSpace(f[9]))
	if err != nil {
		return game.EncounterUpdate{}, malformed("encounter update hp", err)
	}
	return game.EncounterUpdate{Ailment: f[1], Name: f[4], MaxHP: maxHP, CurrentHP: cur}, nil
}

// DecodeRocks reads the rock overlay of a map update, segment 8.
func DecodeRocks(m Message) ([]world.Rock, error) {
	raw, ok := m.Segment(8)
	if !ok || strings.TrimSpace(raw) == "" || raw == "[]" {
		return nil, nil
	}
	raw = strings.ReplaceAll(raw, "[[", "[")
	raw = strings.ReplaceAll(raw, "]]", "]")
	var rocks []world.Rock
	for _, rec := range strings.Split(raw, "],[") {
		f := strings.Split(strings.Trim(rec, "[]"), ",")
		if len(f) < 4 {
			return nil, malformed(fmt.Sprintf("rock %q", rec), nil)
		}
		x, err := strconv.Atoi(strings.TrimSpace(f[0]))
		if err != nil {
			return nil, malformed("rock x", err)
		}
		y, err := strconv.Atoi(strings.TrimSpace(f[1]))
		if err != nil {
			return nil, malformed("rock y", err)
		}
		avail, err := strconv.Atoi(strings.TrimSpace(f[3]))
		if err != nil {
			return nil, malformed("rock availability", err)
		}
		rocks = append(rocks, world.Rock{
			At:        world.Point{X: x, Y: y},
			Kind:      strings.Trim(strings.TrimSpace(f[2]), `'"`),
			Available: avail != 0,
		})
	}
	return rocks, nil
}

// DecodeRockEvent reads the coordinates of a depleted or restored rock.
func DecodeRockEvent(m Message) (world.Point, error) {
	r := segReader{segs: m.segments, what: "rock event"}
	x, err := r.integer(4)
	if err != nil {
		return world.Point{}, err
	}
	y, err := r.integer(5)
	if err != nil {
		return world.Point{}, err
	}
	return world.Point{X: x, Y: y}, nil
}

func DecodePlayer(m Message) (game.NearbyPlayer, error) {
	r := segReader{segs: m.segments, what: "player"}
	name, err := r.str(4)
	if err != nil {
		return game.NearbyPlayer{}, err
	}
	id, err := r.str(8)
	if err != nil {
		return game.NearbyPlayer{}, err
	}
	kind, err := r.str(21)
	if err != nil {
		return game.NearbyPlayer{}, err
	}
	return game.NearbyPlayer{ID: id, Name: name, Kind: kind}, nil
}

// DecodeItemDelta reads "name,count" from segment 4.
func DecodeItemDelta(m Message) (game.ItemCount, error) {
	raw, ok := m.Segment(4)
	if !ok {
		return game.ItemCount{}, malformed("item delta", nil)
	}
	return decodeItemCount(raw)
}

// HeldItemChange is a held item confirmation.
type HeldItemChange struct {
	Slot           int
	InventoryIndex int
}

func DecodeHeldItem(m Message) (HeldItemChange, error) {
	r := segReader{segs: m.segments, what: "held item"}
	slot, err := r.integer(4)
	if err != nil {
		return HeldItemChange{}, err
	}
	c := HeldItemChange{Slot: slot, InventoryIndex: -1}
	if m.Action == ActionItemGiven {
		if c.InventoryIndex, err = r.integer(5); err != nil {
			return HeldItemChange{}, err
		}
	}
	return c, nil
}

// InventoryDelta is carried by updateInventory and buyItem responses.
type InventoryDelta struct {
	Item    string
	Amount  int
	Message string
}

func DecodeInventoryDelta(m Message) (InventoryDelta, error) {
	item, err := m.Field("item")
	if err != nil {
		return InventoryDelta{}, err
	}
	amount, err := m.Field("amount")
	if err != nil {
		return InventoryDelta{}, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(amount))
	if err != nil {
		return InventoryDelta{}, malformed("inventory amount", err)
	}
	d := InventoryDelta{Item: item, Amount: n}
	if msg, err := m.Field("msg"); err == nil {
		d.Message = msg
	}
	return d, nil
}

// Chat channels as tagged on the wire.
const (
	ChannelLocal   = "<l>"
	ChannelClan    = "<cl>"
	ChannelPrivate = "<f>"
)

type ChatLine struct {
	Channel  string `json:"channel"`
	UserType string `json:"user_type"`
	Sender   string `json:"sender"`
	Text     string `json:"text"`
}

// DecodeChat handles public, clan and private chat frames.
func DecodeChat(m Message) (ChatLine, error) {
	r := segReader{segs: m.segments, what: "chat"}
	a, err := r.str(4)
	if err != nil {
		return ChatLine{}, err
	}
	b, err := r.str(5)
	if err != nil {
		return ChatLine{}, err
	}
	switch m.Action {
	case ActionPublicChat:
		if len(a) < 6 {
			return ChatLine{}, malformed("public chat header", nil)
		}
		return ChatLine{UserType: a[:3], Channel: a[3:6], Text: a[6:], Sender: b}, nil
	case ActionClanChat:
		if len(a) < 3 {
			return ChatLine{}, malformed("clan chat header", nil)
		}
		return ChatLine{UserType: a[:3], Channel: ChannelClan, Text: a[3:], Sender: b}, nil
	case ActionPrivateChat:
		if len(b) < 3 {
			return ChatLine{}, malformed("private chat header", nil)
		}
		return ChatLine{UserType: b[:3], Channel: ChannelPrivate, Text: b[3:], Sender: a}, nil
	}
	return ChatLine{}, malformed("chat action "+m.Action, nil)
}

// LocalMapTag extracts the "<Map>" prefix of a local chat line.
func LocalMapTag(text string) string {
	start := strings.Index(text, "<")
	end := strings.Index(text, ">")
	if start < 0 || end <= start {
		return ""
	}
	return text[start+1 : end]
}
