package world

// Rock is a mineable overlay pushed by the server on top of a map.
type Rock struct {
	At        Point  `json:"at"`
	Kind      string `json:"kind"`
	Available bool   `json:"available"`
}
