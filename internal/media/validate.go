package media

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Skotchmaster/gogomedia/internal/models"
)

const (
	msgMissingIdentity = "missing parameter 'name' or parameter 'id'"
	msgIDType          = "id parameter must be type integer"
	msgNameType        = "name parameter must be type string"
	msgMedium          = "medium parameter must be 'film', 'audio', 'literature', or 'other'"
	msgConsumedState   = "consumed_state parameter must be 'not started', 'started', or 'finished'"
	msgDescriptionType = "description parameter must be type string"
	msgOrderType       = "order parameter must be type integer"
	msgNotObject       = "media element must be a JSON object"
	msgEmptyList       = "media list must not be empty"
)

var ErrMalformedBody = errors.New("malformed JSON body")

// ValidationError reports the first failing check for a payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// RawItem is one undecoded media mutation keyed by its JSON field names.
type RawItem map[string]json.RawMessage

// Optional distinguishes a field that was sent from one that was left out.
type Optional[T any] struct {
	Value T
	Set   bool
}

func some[T any](v T) Optional[T] { return Optional[T]{Value: v, Set: true} }

// Patch is a validated item. Unset fields are left untouched on update and
// take their defaults on insert.
type Patch struct {
	ID            Optional[int64]
	Name          Optional[string]
	Medium        Optional[models.Medium]
	ConsumedState Optional[models.ConsumedState]
	Description   Optional[string]
	Order         Optional[int]
}

func decodeAny(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func asInt(raw json.RawMessage) (int64, bool) {
	v, err := decodeAny(raw)
	if err != nil {
		return 0, false
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return i, true
}

func asString(raw json.RawMessage) (string, bool) {
	v, err := decodeAny(raw)
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Validate runs the item checks in their fixed order and returns the first
// failure. Presence means the key exists, so an explicit null is checked
// like any other value.
func Validate(item RawItem) (Patch, error) {
	var p Patch

	rawID, hasID := item["id"]
	rawName, hasName := item["name"]
	if !hasID && !hasName {
		return p, invalid("id", msgMissingIdentity)
	}

	if hasID {
		id, ok := asInt(rawID)
		if !ok {
			return p, invalid("id", msgIDType)
		}
		p.ID = some(id)
	}

	if hasName {
		name, ok := asString(rawName)
		if !ok {
			return p, invalid("name", msgNameType)
		}
		p.Name = some(name)
	}

	if raw, ok := item["medium"]; ok {
		s, isStr := asString(raw)
		if !isStr || !models.Medium(s).Valid() {
			return p, invalid("medium", msgMedium)
		}
		p.Medium = some(models.Medium(s))
	}

	if raw, ok := item["consumed_state"]; ok {
		s, isStr := asString(raw)
		if !isStr || !models.ConsumedState(s).Valid() {
			return p, invalid("consumed_state", msgConsumedState)
		}
		p.ConsumedState = some(models.ConsumedState(s))
	}

	if raw, ok := item["description"]; ok {
		s, isStr := asString(raw)
		if !isStr {
			return p, invalid("description", msgDescriptionType)
		}
		p.Description = some(s)
	}

	if raw, ok := item["order"]; ok {
		n, isInt := asInt(raw)
		if !isInt {
			return p, invalid("order", msgOrderType)
		}
		p.Order = some(int(n))
	}

	return p, nil
}

// ParseBatch splits a PUT body into its items. A single object yields one
// item with isList false.
func ParseBatch(body []byte) (items []RawItem, isList bool, err error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false, invalid("", msgNotObject)
	}

	if trimmed[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, true, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		if len(elems) == 0 {
			return nil, true, invalid("", msgEmptyList)
		}
		items = make([]RawItem, 0, len(elems))
		for _, el := range elems {
			item, err := parseObject(el)
			if err != nil {
				return nil, true, err
			}
			items = append(items, item)
		}
		return items, true, nil
	}

	item, err := parseObject(trimmed)
	if err != nil {
		return nil, false, err
	}
	return []RawItem{item}, false, nil
}

func parseObject(raw json.RawMessage) (RawItem, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		if !json.Valid(raw) {
			return nil, ErrMalformedBody
		}
		return nil, invalid("", msgNotObject)
	}
	var item RawItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return item, nil
}
