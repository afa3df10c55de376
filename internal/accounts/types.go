package accounts

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/broady/surface/surfacegen/ir"
)

// Reserved contact IDs. Contacts created by the user start above
// lastSpecialContactID.
const (
	SelfContactID        uint32 = 1
	lastSpecialContactID uint32 = 9
	lastSpecialChatID    uint32 = 9
)

// Contact list flags accepted by the contact listing operations.
const (
	// ListAddSelf includes the account's own contact.
	ListAddSelf uint32 = 0x02
)

// Account describes one account. It is serialized as the tagged union
// {"type": "Configured", ...} or {"type": "Unconfigured", "id": ...}.
type Account struct {
	ID         uint32
	Configured bool

	// Set only for configured accounts.
	DisplayName  *string
	Addr         *string
	ProfileImage *string
	Color        string
}

func (a Account) MarshalJSON() ([]byte, error) {
	if !a.Configured {
		return json.Marshal(struct {
			Type string `json:"type"`
			ID   uint32 `json:"id"`
		}{"Unconfigured", a.ID})
	}
	return json.Marshal(struct {
		Type         string  `json:"type"`
		ID           uint32  `json:"id"`
		DisplayName  *string `json:"display_name"`
		Addr         *string `json:"addr"`
		ProfileImage *string `json:"profile_image"`
		Color        string  `json:"color"`
	}{"Configured", a.ID, a.DisplayName, a.Addr, a.ProfileImage, a.Color})
}

func (a *Account) UnmarshalJSON(data []byte) error {
	var v struct {
		Type         string  `json:"type"`
		ID           uint32  `json:"id"`
		DisplayName  *string `json:"display_name"`
		Addr         *string `json:"addr"`
		ProfileImage *string `json:"profile_image"`
		Color        string  `json:"color"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.Type {
	case "Configured":
		*a = Account{ID: v.ID, Configured: true, DisplayName: v.DisplayName, Addr: v.Addr, ProfileImage: v.ProfileImage, Color: v.Color}
	case "Unconfigured":
		*a = Account{ID: v.ID}
	default:
		return fmt.Errorf("unknown account type %q", v.Type)
	}
	return nil
}

// SurfaceType describes the wire union, which Go cannot express directly.
func (Account) SurfaceType() ir.TypeDescriptor {
	id := ir.FieldDescriptor{Name: "ID", JSONName: "id", Type: ir.Uint(32)}
	optString := func(name, jsonName string) ir.FieldDescriptor {
		return ir.FieldDescriptor{Name: name, JSONName: jsonName, Type: ir.Optional(ir.String())}
	}
	return ir.Named("Account", "github.com/broady/surface/internal/accounts", &ir.UnionShape{
		Tag: "type",
		Variants: []ir.UnionVariant{
			{Name: "Configured", Fields: []ir.FieldDescriptor{
				id,
				optString("DisplayName", "display_name"),
				optString("Addr", "addr"),
				optString("ProfileImage", "profile_image"),
				{Name: "Color", JSONName: "color", Type: ir.String()},
			}},
			{Name: "Unconfigured", Fields: []ir.FieldDescriptor{id}},
		},
	})
}

// ProviderStatus rates how well a mail provider works.
type ProviderStatus uint32

const (
	ProviderOK          ProviderStatus = 1
	ProviderPreparation ProviderStatus = 2
	ProviderBroken      ProviderStatus = 3
)

func (ProviderStatus) EnumValues() []any {
	return []any{ProviderOK, ProviderPreparation, ProviderBroken}
}

func (s ProviderStatus) String() string {
	switch s {
	case ProviderOK:
		return "Ok"
	case ProviderPreparation:
		return "Preparation"
	case ProviderBroken:
		return "Broken"
	default:
		return fmt.Sprintf("ProviderStatus(%d)", uint32(s))
	}
}

// ProviderInfo is what is known about the provider of an address.
type ProviderInfo struct {
	BeforeLoginHint string         `json:"before_login_hint"`
	OverviewPage    string         `json:"overview_page"`
	Status          ProviderStatus `json:"status"`
}

// Contact is a contact as seen by callers.
type Contact struct {
	Address      string  `json:"address"`
	Color        string  `json:"color"`
	AuthName     string  `json:"auth_name"`
	Status       string  `json:"status"`
	DisplayName  string  `json:"display_name"`
	ID           uint32  `json:"id"`
	Name         string  `json:"name"`
	ProfileImage *string `json:"profile_image"`
	NameAndAddr  string  `json:"name_and_addr"`
	IsBlocked    bool    `json:"is_blocked"`
	IsVerified   bool    `json:"is_verified"`
}

// Chat types.
const (
	ChatTypeSingle uint32 = 100
)

// FullChat is a chat with its member contacts resolved.
type FullChat struct {
	ID                  uint32    `json:"id"`
	Name                string    `json:"name"`
	IsProtected         bool      `json:"is_protected"`
	ProfileImage        *string   `json:"profile_image"`
	Archived            bool      `json:"archived"`
	ChatType            uint32    `json:"chat_type"`
	IsUnpromoted        bool      `json:"is_unpromoted"`
	IsSelfTalk          bool      `json:"is_self_talk"`
	Contacts            []Contact `json:"contacts"`
	ContactIDs          []uint32  `json:"contact_ids"`
	Color               string    `json:"color"`
	FreshMessageCounter int       `json:"fresh_message_counter"`
	IsContactRequest    bool      `json:"is_contact_request"`
	IsDeviceChat        bool      `json:"is_device_chat"`
	SelfInGroup         bool      `json:"self_in_group"`
	IsMuted             bool      `json:"is_muted"`
	EphemeralTimer      uint32    `json:"ephemeral_timer"`
}

// Message is a sent or received text message.
type Message struct {
	ID        uint32 `json:"id"`
	ChatID    uint32 `json:"chat_id"`
	FromID    uint32 `json:"from_id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// colorFor derives a stable display color from an address or name.
func colorFor(s string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(s)))
	return fmt.Sprintf("#%06x", h.Sum32()&0xffffff)
}
