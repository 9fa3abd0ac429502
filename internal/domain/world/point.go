package world

import (
	"fmt"
	"strings"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

func (p Point) Step(d Direction) Point {
	dx, dy := d.Delta()
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// DirectionTo returns the cardinal direction leading from p to an adjacent q.
func (p Point) DirectionTo(q Point) (Direction, bool) {
	for _, d := range Directions {
		if p.Step(d) == q {
			return d, true
		}
	}
	return DirNone, false
}

type Direction int

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

// Directions lists the cardinal directions in wire order.
var Directions = []Direction{DirUp, DirDown, DirLeft, DirRight}

func (d Direction) Delta() (int, int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	default:
		return 0, 0
	}
}

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return ""
	}
}

// Initial is the one-letter form used by movement frames.
func (d Direction) Initial() string {
	s := d.String()
	if s == "" {
		return ""
	}
	return s[:1]
}

func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u":
		return DirUp
	case "down", "d":
		return DirDown
	case "left", "l":
		return DirLeft
	case "right", "r":
		return DirRight
	default:
		return DirNone
	}
}
