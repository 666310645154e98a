package entity

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vadim/impulsa-inbox/internal/apperror"
)

// ItemType is the kind of marketplace item a notification refers to
type ItemType string

const (
	ItemEntrepreneurship ItemType = "entrepreneurship"
	ItemProduct          ItemType = "product"
	ItemInvestmentIdea   ItemType = "investment_idea"
)

// Valid reports whether i is a known item type
func (i ItemType) Valid() bool {
	switch i {
	case ItemEntrepreneurship, ItemProduct, ItemInvestmentIdea:
		return true
	}
	return false
}

// Noun returns the localized noun used in notification copy
func (i ItemType) Noun() string {
	switch i {
	case ItemEntrepreneurship:
		return "emprendimiento"
	case ItemProduct:
		return "producto"
	case ItemInvestmentIdea:
		return "idea de inversión"
	}
	return string(i)
}

// DetailRoute returns the client route showing the item
func (i ItemType) DetailRoute() string {
	return string(i) + "_detail"
}

// Client navigation targets
const (
	RedirectHome       = "home"
	RedirectChatDetail = "chat_detail"
)

// Payload is the type-dependent structured data of a notification
type Payload interface {
	// Accepts reports whether the payload may be attached to a notification of type t
	Accepts(t Type) bool
	Validate() error
}

// Redirect is the navigation hint present on every payload
type Redirect struct {
	RedirectTo string `json:"redirect_to"`
	EntityID   int64  `json:"entity_id"`
}

func (r Redirect) validate() error {
	if r.RedirectTo == "" {
		return apperror.Validation("redirect_to is required")
	}
	if r.EntityID < 0 {
		return apperror.Validation("entity_id must not be negative")
	}
	return nil
}

// NavigationPayload is attached to welcome and system notifications
type NavigationPayload struct {
	Redirect
}

func (NavigationPayload) Accepts(t Type) bool {
	return t == TypeWelcome || t == TypeSystem
}

func (p NavigationPayload) Validate() error {
	return p.Redirect.validate()
}

// FavoritePayload is attached to favorite notifications
type FavoritePayload struct {
	ItemID     int64    `json:"item_id"`
	ItemType   ItemType `json:"item_type"`
	ActorID    int64    `json:"actor_id"`
	ActorName  string   `json:"actor_name"`
	ActorImage string   `json:"actor_image,omitempty"`
	Redirect
}

func (FavoritePayload) Accepts(t Type) bool { return t == TypeFavorite }

func (p FavoritePayload) Validate() error {
	if p.ItemID <= 0 || p.ActorID <= 0 {
		return apperror.Validation("item_id and actor_id must be positive")
	}
	if !p.ItemType.Valid() {
		return ErrInvalidItemType
	}
	if p.ActorName == "" {
		return apperror.Validation("actor_name is required")
	}
	return p.Redirect.validate()
}

// MessagePayload is attached to message notifications
type MessagePayload struct {
	ChatID      int64  `json:"chat_id"`
	SenderID    int64  `json:"sender_id"`
	SenderName  string `json:"sender_name"`
	SenderImage string `json:"sender_image,omitempty"`
	Redirect
}

func (MessagePayload) Accepts(t Type) bool { return t == TypeMessage }

func (p MessagePayload) Validate() error {
	if p.ChatID <= 0 || p.SenderID <= 0 {
		return apperror.Validation("chat_id and sender_id must be positive")
	}
	if p.SenderName == "" {
		return apperror.Validation("sender_name is required")
	}
	return p.Redirect.validate()
}

// RatingPayload is attached to rating notifications
type RatingPayload struct {
	Rating       float64  `json:"rating"`
	ReviewerID   int64    `json:"reviewer_id"`
	ReviewerName string   `json:"reviewer_name"`
	ItemID       int64    `json:"item_id"`
	ItemType     ItemType `json:"item_type"`
	Redirect
}

func (RatingPayload) Accepts(t Type) bool { return t == TypeRating }

func (p RatingPayload) Validate() error {
	if p.Rating < 1 || p.Rating > 5 {
		return ErrInvalidRating
	}
	if p.ReviewerID <= 0 || p.ItemID <= 0 {
		return apperror.Validation("reviewer_id and item_id must be positive")
	}
	if p.ReviewerName == "" {
		return apperror.Validation("reviewer_name is required")
	}
	if !p.ItemType.Valid() {
		return ErrInvalidItemType
	}
	return p.Redirect.validate()
}

// ItemPayload is attached to new_product, new_entrepreneurship and new_investment_idea notifications
type ItemPayload struct {
	ItemID   int64    `json:"item_id"`
	ItemType ItemType `json:"item_type"`
	Redirect
}

func (ItemPayload) Accepts(t Type) bool {
	return t == TypeNewProduct || t == TypeNewEntrepreneurship || t == TypeNewInvestmentIdea
}

func (p ItemPayload) Validate() error {
	if p.ItemID <= 0 {
		return apperror.Validation("item_id must be positive")
	}
	if !p.ItemType.Valid() {
		return ErrInvalidItemType
	}
	return p.Redirect.validate()
}

// newPayload returns an empty payload of the variant used by t
func newPayload(t Type) (Payload, error) {
	switch t {
	case TypeWelcome, TypeSystem:
		return &NavigationPayload{}, nil
	case TypeFavorite:
		return &FavoritePayload{}, nil
	case TypeMessage:
		return &MessagePayload{}, nil
	case TypeRating:
		return &RatingPayload{}, nil
	case TypeNewProduct, TypeNewEntrepreneurship, TypeNewInvestmentIdea:
		return &ItemPayload{}, nil
	}
	return nil, ErrInvalidType
}

// DecodePayload parses client-supplied payload JSON for a notification of type t.
// Unknown keys are rejected and the result is validated.
func DecodePayload(t Type, raw []byte) (Payload, error) {
	if isEmptyJSON(raw) {
		return nil, nil
	}

	p, err := decodePayload(t, raw, true)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadPayload parses payload JSON read back from storage. It is lenient about
// unknown keys so older rows stay readable.
func LoadPayload(t Type, raw []byte) (Payload, error) {
	if isEmptyJSON(raw) {
		return nil, nil
	}
	return decodePayload(t, raw, false)
}

// EncodePayload serializes a payload for storage; nil stays nil
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return data, nil
}

func decodePayload(t Type, raw []byte, strict bool) (Payload, error) {
	ptr, err := newPayload(t)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(ptr); err != nil {
		if strict {
			return nil, &payloadError{cause: err}
		}
		return nil, fmt.Errorf("decoding %s payload: %w", t, err)
	}

	// Store values, not pointers, so payloads compare and marshal uniformly
	switch v := ptr.(type) {
	case *NavigationPayload:
		return *v, nil
	case *FavoritePayload:
		return *v, nil
	case *MessagePayload:
		return *v, nil
	case *RatingPayload:
		return *v, nil
	case *ItemPayload:
		return *v, nil
	}
	return ptr, nil
}

// payloadError reports malformed client payloads as validation errors
type payloadError struct {
	cause error
}

func (e *payloadError) Error() string {
	return ErrInvalidPayload.Error() + ": " + e.cause.Error()
}

func (e *payloadError) Unwrap() []error {
	return []error{ErrInvalidPayload, e.cause}
}

func isEmptyJSON(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
