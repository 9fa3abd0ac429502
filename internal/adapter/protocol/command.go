package protocol

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Extension is the server-side extension every command is routed to.
const Extension = "PokemonPlanetExt"

const (
	tokenAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	MinTokenLength = 5
	MaxTokenLength = 20
)

type shape int

const (
	shapeRaw shape = iota
	shapeXt
	shapeExt
)

// Param is one typed variable of an XML extension request.
type Param struct {
	Name  string
	Type  string
	Value string
}

func StringParam(name, value string) Param {
	return Param{Name: name, Type: "s", Value: value}
}

func NumberParam(name string, value int) Param {
	return Param{Name: name, Type: "n", Value: strconv.Itoa(value)}
}

// Command is an outbound frame before signing. Build it with Xt, XtBare,
// Ext, ExtBare or Raw, then turn it into bytes with Encode.
type Command struct {
	Name   string
	Args   []string
	Params []Param
	Signed bool

	shape shape
	raw   string
}

// Xt is a signed delimiter command.
func Xt(name string, args ...any) Command {
	return Command{Name: name, Args: stringify(args), Signed: true, shape: shapeXt}
}

// XtBare is a delimiter command without the token triple.
func XtBare(name string, args ...any) Command {
	return Command{Name: name, Args: stringify(args), shape: shapeXt}
}

// Ext is a signed XML extension request.
func Ext(name string, params ...Param) Command {
	return Command{Name: name, Params: params, Signed: true, shape: shapeExt}
}

// ExtBare is an XML extension request without the token triple.
func ExtBare(name string, params ...Param) Command {
	return Command{Name: name, Params: params, shape: shapeExt}
}

// Raw sends s verbatim, followed by the terminator.
func Raw(name, s string) Command {
	return Command{Name: name, shape: shapeRaw, raw: s}
}

func stringify(args []any) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = fmt.Sprint(a)
	}
	return out
}

// Token is the per-send anti-tamper triple.
type Token struct {
	Key       string
	ElapsedMS int64
	Digest    string
}

// Signer mints a fresh Token for every send. It is safe for concurrent use.
type Signer struct {
	secret string
	start  time.Time
	now    func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSigner(secret string, start time.Time, now func() time.Time, rng *rand.Rand) *Signer {
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(now().UnixNano()))
	}
	return &Signer{secret: secret, start: start, now: now, rng: rng}
}

func (s *Signer) Sign() Token {
	elapsed := s.now().Sub(s.start).Milliseconds()
	key := s.randomKey()
	return Token{Key: key, ElapsedMS: elapsed, Digest: Digest(key, s.secret, elapsed)}
}

func (s *Signer) randomKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := MinTokenLength + s.rng.Intn(MaxTokenLength-MinTokenLength+1)
	b := make([]byte, n)
	for i := range b {
		b[i] = tokenAlphabet[s.rng.Intn(len(tokenAlphabet))]
	}
	return string(b)
}

// Digest is md5(key + secret + elapsed) in lower-case hex.
func Digest(key, secret string, elapsedMS int64) string {
	return MD5Hex(key + secret + strconv.FormatInt(elapsedMS, 10))
}

func MD5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Encode renders cmd as a NUL-terminated frame. tok is ignored for unsigned
// commands.
func Encode(cmd Command, tok Token) []byte {
	var b strings.Builder
	switch cmd.shape {
	case shapeRaw:
		b.WriteString(cmd.raw)
	case shapeXt:
		b.WriteString("`xt`")
		b.WriteString(Extension)
		b.WriteString("`")
		b.WriteString(cmd.Name)
		b.WriteString("`1")
		if cmd.Signed {
			fmt.Fprintf(&b, "`%d`%s`%s", tok.ElapsedMS, tok.Key, tok.Digest)
		}
		for _, a := range cmd.Args {
			b.WriteString("`")
			b.WriteString(a)
		}
		b.WriteString("`")
	case shapeExt:
		b.WriteString("<msg t='xt'><body action='xtReq' r='1'><![CDATA[<dataObj>")
		fmt.Fprintf(&b, "<var n='name' t='s'>%s</var>", Extension)
		fmt.Fprintf(&b, "<var n='cmd' t='s'>%s</var>", cmd.Name)
		b.WriteString("<obj t='o' o='param'>")
		for _, p := range cmd.Params {
			fmt.Fprintf(&b, "<var n='%s' t='%s'>", p.Name, p.Type)
			_ = xml.EscapeText(&b, []byte(p.Value))
			b.WriteString("</var>")
		}
		if cmd.Signed {
			fmt.Fprintf(&b, "<var n='pke' t='s'>%s</var>", tok.Digest)
			fmt.Fprintf(&b, "<var n='pk' t='s'>%s</var>", tok.Key)
			fmt.Fprintf(&b, "<var n='te' t='n'>%d</var>", tok.ElapsedMS)
		}
		b.WriteString("</obj></dataObj>]]></body></msg>")
	}
	b.WriteByte(0)
	return []byte(b.String())
}
