package plugins

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/buger/jsonparser"
)

// Plugin is the payload we copy to the target endpoint. ConsumerID is nil for plugins which apply to
// all consumers and is sent as null.
type Plugin struct {
	Name       string          `json:"name"`
	ConsumerID *string         `json:"consumer_id"`
	Config     json.RawMessage `json:"config"`
}

// Consumer returns the consumer id for logging, empty for a global plugin
func (p *Plugin) Consumer() string {
	if p.ConsumerID == nil {
		return ""
	}
	return *p.ConsumerID
}

// Page is a single page of the plugin listing
type Page struct {
	Entries [][]byte // raw JSON objects from data
	Next    string   // absolute URL of the next page, empty on the last page
}

// ParsePage parses a listing page fetched from pageURL, resolving its next link against it
func ParsePage(pageURL *url.URL, body []byte) (*Page, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("page is not valid JSON")
	}

	data, dataType, _, err := jsonparser.Get(body, "data")
	if err != nil {
		return nil, fmt.Errorf("error reading data from page: %w", err)
	}
	if dataType != jsonparser.Array {
		return nil, fmt.Errorf("expected data to be an array, got %s", dataType)
	}

	page := &Page{}
	_, err = jsonparser.ArrayEach(data, func(value []byte, dt jsonparser.ValueType, offset int, err error) {
		page.Entries = append(page.Entries, value)
	})
	if err != nil {
		return nil, fmt.Errorf("error reading data from page: %w", err)
	}

	next, nextType, _, err := jsonparser.Get(body, "next")
	if err == jsonparser.KeyPathNotFoundError || nextType == jsonparser.Null {
		return page, nil
	} else if err != nil {
		return nil, fmt.Errorf("error reading next from page: %w", err)
	} else if nextType != jsonparser.String {
		return nil, fmt.Errorf("expected next to be a string, got %s", nextType)
	}

	nextStr, err := jsonparser.ParseString(next)
	if err != nil {
		return nil, fmt.Errorf("error reading next from page: %w", err)
	}
	if nextStr == "" {
		return page, nil
	}

	nextURL, err := pageURL.Parse(nextStr)
	if err != nil {
		return nil, fmt.Errorf("invalid next link '%s': %w", nextStr, err)
	}
	page.Next = nextURL.String()

	return page, nil
}

// ParsePlugin reads the fields we migrate from a listing entry. All of them are required but consumer_id
// may be null.
func ParsePlugin(entry []byte) (*Plugin, error) {
	name, err := jsonparser.GetString(entry, "name")
	if err != nil {
		return nil, fmt.Errorf("error reading plugin name: %w", err)
	}

	var consumerID *string
	value, valueType, _, err := jsonparser.Get(entry, "consumer_id")
	if err != nil {
		return nil, fmt.Errorf("error reading consumer_id of %s plugin: %w", name, err)
	}
	switch valueType {
	case jsonparser.Null:
	case jsonparser.String:
		id, err := jsonparser.ParseString(value)
		if err != nil {
			return nil, fmt.Errorf("error reading consumer_id of %s plugin: %w", name, err)
		}
		consumerID = &id
	default:
		return nil, fmt.Errorf("expected consumer_id of %s plugin to be a string, got %s", name, valueType)
	}

	config, configType, _, err := jsonparser.Get(entry, "config")
	if err != nil {
		return nil, fmt.Errorf("error reading config of %s plugin: %w", name, err)
	}
	if configType != jsonparser.Object {
		return nil, fmt.Errorf("expected config of %s plugin to be an object, got %s", name, configType)
	}

	return &Plugin{Name: name, ConsumerID: consumerID, Config: json.RawMessage(config)}, nil
}
