package media

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/Skotchmaster/gogomedia/internal/models"
	"github.com/Skotchmaster/gogomedia/internal/repo"
)

const (
	msgMediumParam = "medium url parameter must be 'film', 'audio', 'literature', or 'other'"
	msgStateParam  = "consumed-state url parameter must be 'not-started', 'started', or 'finished'"

	msgMissingID = "missing parameter 'id'"
)

// ParseFilter reads the medium and consumed-state query parameters. A
// parameter that is present must name a known value, even when empty.
func ParseFilter(q url.Values) (repo.MediaFilter, error) {
	var f repo.MediaFilter

	if q.Has("consumed-state") {
		state := models.ConsumedState(strings.ReplaceAll(q.Get("consumed-state"), "-", " "))
		if strings.Contains(q.Get("consumed-state"), " ") || !state.Valid() {
			return f, invalid("consumed-state", msgStateParam)
		}
		f.ConsumedState = &state
	}

	if q.Has("medium") {
		medium := models.Medium(q.Get("medium"))
		if !medium.Valid() {
			return f, invalid("medium", msgMediumParam)
		}
		f.Medium = &medium
	}

	return f, nil
}

// ParseDeleteID extracts the id from a DELETE body.
func ParseDeleteID(body []byte) (int64, error) {
	var item RawItem
	if len(bytes.TrimSpace(body)) > 0 {
		if !json.Valid(body) {
			return 0, ErrMalformedBody
		}
		if err := json.Unmarshal(body, &item); err != nil {
			// valid JSON that is not an object carries no id
			return 0, invalid("id", msgMissingID)
		}
	}
	raw, ok := item["id"]
	if !ok {
		return 0, invalid("id", msgMissingID)
	}
	id, ok := asInt(raw)
	if !ok {
		return 0, invalid("id", msgIDType)
	}
	return id, nil
}
