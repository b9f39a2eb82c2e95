package db

import (
	"reflect"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Document names.
const (
	DocPoints        = "points"
	DocRequests      = "requests"
	DocEngagementLog = "engagement_log"
	DocFollows       = "global_follows"
	DocGiverCount    = "giver_count"
	DocPendingDM     = "pending_dm"
)

var Documents = []string{
	DocPoints,
	DocRequests,
	DocEngagementLog,
	DocFollows,
	DocGiverCount,
	DocPendingDM,
}

func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode fills v from data. Empty or unparsable data leaves v as an empty
// non-nil value; parse failures are logged, never returned.
func Decode(doc string, data []byte, v any) {
	Reset(v)
	if len(data) > 0 {
		err := json.Unmarshal(data, v)
		if err == nil {
			ensureMap(v)
			return
		}
		log.WithField("component", "store").
			WithField("document", doc).
			WithError(err).
			Warn("unparsable document, using empty default")
	}
	Reset(v)
}

// Reset sets the value behind pointer v to its empty default.
func Reset(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return
	}
	elem := rv.Elem()
	if elem.Kind() == reflect.Map {
		elem.Set(reflect.MakeMap(elem.Type()))
		return
	}
	elem.Set(reflect.Zero(elem.Type()))
}

func ensureMap(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return
	}
	if elem := rv.Elem(); elem.Kind() == reflect.Map && elem.IsNil() {
		elem.Set(reflect.MakeMap(elem.Type()))
	}
}
