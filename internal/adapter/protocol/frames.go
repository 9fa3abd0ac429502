package protocol

import (
	"fmt"
	"strconv"

	"planetbot/internal/domain/world"
)

const (
	Zone = "PokemonPlanet"

	wildBattleSalt   = "dlod02jhznpd02jdhggyambya8201201nfbmj209ahao8rh2pb"
	declineClanSalt  = "declineClanInvitekzf76adngjfdgh12m7mdlbfi9proa15gjqp0sd3mo1lk7w90cd"
	gameLoginVersion = 3
)

// Command names sent by the client.
const (
	CmdHeartbeat     = "p"
	CmdGameLogin     = "b61"
	CmdMapInfo       = "b74"
	CmdMapEnter      = "b5"
	CmdAnnounce      = "b55"
	CmdAddBack       = "b56"
	CmdSave          = "b26"
	CmdStepsSaved    = "b38"
	CmdPosition      = "r8"
	CmdMove          = "m"
	CmdMount         = "b191"
	CmdWildBattle    = "b78"
	CmdBattleAction  = "b76"
	CmdFlee          = "b77"
	CmdBattleAck     = "r"
	CmdUseItem       = "b11"
	CmdLearnMove     = "b0"
	CmdEvolveAccept  = "b18"
	CmdEvolveDeny    = "b19"
	CmdDeclineBattle = "b14"
	CmdDeclineTrade  = "b17"
	CmdReorder       = "b2"
	CmdFollowSprite  = "b75"
	CmdGiveItem      = "b58"
	CmdTakeItem      = "b59"
	CmdCast          = "b70"
	CmdHook          = "b122"
	CmdMine          = "b163"
	CmdFishAnim      = "f"
	CmdMineAnim      = "f2"
	CmdStopMineAnim  = "f3"
	CmdChat          = "b66"
	CmdChatCommand   = "b4"
	CmdClanChat      = "b67"
	CmdPrivate       = "r36"
)

func PolicyRequest() Command {
	return Raw("policy", "<policy-file-request/>")
}

func VersionCheck(version string) Command {
	return Raw("verChk", fmt.Sprintf("<msg t='sys'><body action='verChk' r='0'><ver v='%s' /></body></msg>", version))
}

func Login(username, hashPassword string) Command {
	return Raw("login", fmt.Sprintf(
		"<msg t='sys'><body action='login' r='0'><login z='%s'><nick><![CDATA[%s]]></nick><pword><![CDATA[%s]]></pword></login></body></msg>",
		Zone, username, hashPassword))
}

func RoomList() Command {
	return Raw("getRmList", "<msg t='sys'><body action='getRmList' r='-1'></body></msg>")
}

func AutoJoin() Command {
	return Raw("autoJoin", "<msg t='sys'><body action='autoJoin' r='-1'></body></msg>")
}

func Heartbeat() Command {
	return XtBare(CmdHeartbeat)
}

func GameLogin(hashPassword, userID string) Command {
	return Xt(CmdGameLogin, hashPassword, userID, gameLoginVersion)
}

func MapInfo(username string) Command {
	return Xt(CmdMapInfo, username)
}

func MapEnter(at world.Point, cleanMap string) Command {
	return Ext(CmdMapEnter, NumberParam("y", at.Y), NumberParam("x", at.X), StringParam("map", cleanMap))
}

// Presence describes the local player for the announce frames.
type Presence struct {
	At       world.Point
	Facing   world.Direction
	MoveType string
	RawMap   string
	Fishing  int
	// Mount is the display title, "0" when on foot.
	Mount string
}

func Announce(p Presence) Command {
	return Xt(CmdAnnounce, p.At.X, p.At.Y, p.Facing, p.MoveType, p.RawMap, p.Fishing, p.Mount)
}

// AddBack answers another player's arrival so they can see us.
func AddBack(p Presence, otherName string, offset float64) Command {
	return Xt(CmdAddBack, p.At.X, p.At.Y, p.Facing, p.MoveType, otherName, formatFloat(offset), p.Fishing, p.Mount)
}

func Save() Command {
	return ExtBare(CmdSave)
}

func StepsSaved() Command {
	return Ext(CmdStepsSaved)
}

// Position reports coordinates, each signed with the position key.
func Position(at world.Point, positionKey, username, cleanMap string) Command {
	x, y := strconv.Itoa(at.X), strconv.Itoa(at.Y)
	return XtBare(CmdPosition, x, y,
		MD5Hex(x+positionKey+username),
		MD5Hex(y+positionKey+username),
		0, cleanMap)
}

// MoveFlag is the mount marker carried by movement frames.
func MoveFlag(moveType string, speed float64) string {
	switch moveType {
	case "bike":
		return "b"
	case "surf":
		if speed >= 16 {
			return "z"
		}
		return "s"
	default:
		return ""
	}
}

func Move(d world.Direction, flag string) Command {
	return XtBare(CmdMove, d.Initial(), flag)
}

func Mount(mount string) Command {
	if mount == "" {
		mount = "0"
	}
	return XtBare(CmdMount, mount)
}

func WildBattle(cleanMap, moveType, username string) Command {
	return Xt(CmdWildBattle, cleanMap, moveType, MD5Hex(cleanMap+wildBattleSalt+username))
}

func Attack(moveSlot int) Command {
	return Xt(CmdBattleAction, moveSlot, "z", "z")
}

func SwitchPokemon(slot int) Command {
	return Xt(CmdBattleAction, 0, "switchPokemon", slot)
}

// BattleItem uses the inventory item at index during a battle.
func BattleItem(inventoryIndex int) Command {
	return Xt(CmdBattleAction, 0, "i", inventoryIndex)
}

func Flee() Command {
	return Xt(CmdFlee)
}

func BattleAck() Command {
	return XtBare(CmdBattleAck)
}

func UseItem(teamSlot int, item string) Command {
	return Ext(CmdUseItem, StringParam("i", item), NumberParam("p", teamSlot))
}

func LearnMove(moveNum int) Command {
	return Ext(CmdLearnMove, NumberParam("moveNum", moveNum))
}

func Evolve(accept bool) Command {
	if accept {
		return Ext(CmdEvolveAccept)
	}
	return Ext(CmdEvolveDeny)
}

func DeclineBattle() Command {
	return Ext(CmdDeclineBattle)
}

func DeclineTrade() Command {
	return Ext(CmdDeclineTrade)
}

// DeclineClan uses a per-user command name.
func DeclineClan(username string) Command {
	return Ext(MD5Hex(declineClanSalt + username))
}

func Reorder(from, to int) Command {
	return Xt(CmdReorder, from, to)
}

func FollowSprite(speciesID int) Command {
	return Xt(CmdFollowSprite, speciesID)
}

func GiveItem(teamSlot, inventoryIndex int) Command {
	return Xt(CmdGiveItem, teamSlot, inventoryIndex)
}

func TakeItem(teamSlot int) Command {
	return Xt(CmdTakeItem, teamSlot)
}

func Cast(rod string) Command {
	return Xt(CmdCast, rod)
}

func Hook(perfect bool) Command {
	if perfect {
		return Xt(CmdHook, "1")
	}
	return Xt(CmdHook, "0")
}

func Mine(pickaxe string, at world.Point) Command {
	return Xt(CmdMine, pickaxe, at.X, at.Y)
}

func FishAnimation(d world.Direction) Command {
	return XtBare(CmdFishAnim, d.Initial())
}

func MineAnimation(d world.Direction) Command {
	return XtBare(CmdMineAnim, d.Initial())
}

func StopMineAnimation(d world.Direction) Command {
	return XtBare(CmdStopMineAnim, d.Initial())
}

func Chat(text string) Command {
	return Xt(CmdChat, text)
}

func ChatCommand(command string) Command {
	return Ext(CmdChatCommand, StringParam("command", command))
}

func ClanChat(text string) Command {
	return Xt(CmdClanChat, text)
}

func PrivateMessage(to, text string) Command {
	return Xt(CmdPrivate, to, text)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
