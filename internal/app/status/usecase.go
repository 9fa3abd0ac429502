package status

import (
	"context"
	"sort"
	"time"

	"planetbot/internal/domain/game"
)

// Source is implemented by the session engine.
type Source interface {
	Snapshot() Snapshot
}

type UseCase struct {
	Session Source
	Now     func() time.Time
}

func (u UseCase) Execute(_ context.Context) (Response, error) {
	s := u.Session.Snapshot()
	resp := Response{
		Phase:     s.Phase,
		Connected: s.Connected,
		SessionID: s.SessionID,
		Account:   s.Account,
		Running:   s.Running,
		Walking:   s.Walking,
		Resuming:  s.Resuming,
		Player:    playerView(s.Player),
		Tallies:   s.Tallies,
	}
	if s.Connected && !s.StartedAt.IsZero() {
		now := time.Now
		if u.Now != nil {
			now = u.Now
		}
		resp.UptimeSeconds = int64(now().Sub(s.StartedAt).Seconds())
	}
	return resp, nil
}

func playerView(p game.Player) PlayerView {
	v := PlayerView{
		Map:          p.Map,
		X:            p.Pos.X,
		Y:            p.Pos.Y,
		Facing:       p.Facing.String(),
		Mount:        p.Mount,
		Money:        p.Money,
		Credits:      p.Credits,
		Battle:       p.Battle,
		Busy:         p.Busy,
		Encounter:    p.Encounter,
		Active:       p.Active,
		Team:         p.Team,
		Inventory:    p.Inventory.Items(),
		Rocks:        p.RockList(),
		FishingLevel: p.FishingLevel,
		MiningLevel:  p.MiningLevel,
	}
	if v.Team == nil {
		v.Team = []game.Pokemon{}
	}
	if v.Inventory == nil {
		v.Inventory = []game.ItemCount{}
	}
	v.Players = make([]game.NearbyPlayer, 0, len(p.Players))
	for _, np := range p.Players {
		v.Players = append(v.Players, np)
	}
	sort.Slice(v.Players, func(i, j int) bool { return v.Players[i].Name < v.Players[j].Name })
	sort.Slice(v.Rocks, func(i, j int) bool {
		if v.Rocks[i].At.Y != v.Rocks[j].At.Y {
			return v.Rocks[i].At.Y < v.Rocks[j].At.Y
		}
		return v.Rocks[i].At.X < v.Rocks[j].At.X
	})
	return v
}
