package okta

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/fastjson"

	"github.com/hejijunhao/oktify/internal/model"
)

var parserPool fastjson.ParserPool

// DecodeEvents parses a System Log page body: a JSON array of LogEvent
// objects, or a single object.
func DecodeEvents(body []byte) ([]model.RawEvent, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode log page: %w", err)
	}

	switch v.Type() {
	case fastjson.TypeArray:
		arr, _ := v.Array()
		events := make([]model.RawEvent, 0, len(arr))
		for _, item := range arr {
			if item.Type() != fastjson.TypeObject {
				return nil, fmt.Errorf("decode log page: expected object, got %s", item.Type())
			}
			events = append(events, toRawEvent(item))
		}
		return events, nil
	case fastjson.TypeObject:
		return []model.RawEvent{toRawEvent(v)}, nil
	default:
		return nil, fmt.Errorf("decode log page: unexpected %s", v.Type())
	}
}

// DecodeNDJSON parses one LogEvent object per non-blank line.
func DecodeNDJSON(body []byte) ([]model.RawEvent, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	var events []model.RawEvent
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		v, err := p.ParseBytes(b)
		if err != nil {
			return nil, fmt.Errorf("decode line %d: %w", line, err)
		}
		if v.Type() != fastjson.TypeObject {
			return nil, fmt.Errorf("decode line %d: expected object, got %s", line, v.Type())
		}
		events = append(events, toRawEvent(v))
	}
	return events, sc.Err()
}

// toRawEvent copies the fields the engine needs out of a parsed LogEvent.
// Strings are copied because the parser's buffers are reused.
func toRawEvent(v *fastjson.Value) model.RawEvent {
	ev := model.RawEvent{
		UUID:           str(v, "uuid"),
		EventType:      str(v, "eventType"),
		DisplayMessage: str(v, "displayMessage"),
		Actor: model.Actor{
			ID:          str(v, "actor", "id"),
			Type:        str(v, "actor", "type"),
			AlternateID: str(v, "actor", "alternateId"),
			DisplayName: str(v, "actor", "displayName"),
		},
		Outcome: model.Outcome{
			Result: str(v, "outcome", "result"),
			Reason: str(v, "outcome", "reason"),
		},
		Debug: flatten(v.Get("debugContext", "debugData")),
	}

	if ts := str(v, "published"); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			ev.Published = t.UTC()
		}
	}

	for _, t := range v.GetArray("target") {
		if t.Type() != fastjson.TypeObject {
			continue
		}
		ev.Targets = append(ev.Targets, model.Target{
			ID:          str(t, "id"),
			Type:        str(t, "type"),
			AlternateID: str(t, "alternateId"),
			DisplayName: str(t, "displayName"),
			Detail:      flatten(t.Get("detailEntry")),
		})
	}
	return ev
}

func str(v *fastjson.Value, keys ...string) string {
	return string(v.GetStringBytes(keys...))
}

// flatten renders an object's members as strings. Non-string scalars keep
// their JSON text; null members are skipped.
func flatten(v *fastjson.Value) map[string]string {
	if v == nil || v.Type() != fastjson.TypeObject {
		return nil
	}
	obj, _ := v.Object()
	m := make(map[string]string, obj.Len())
	obj.Visit(func(key []byte, val *fastjson.Value) {
		switch val.Type() {
		case fastjson.TypeString:
			m[string(key)] = string(val.GetStringBytes())
		case fastjson.TypeNull:
		case fastjson.TypeNumber:
			m[string(key)] = strconv.FormatFloat(val.GetFloat64(), 'f', -1, 64)
		default:
			m[string(key)] = val.String()
		}
	})
	return m
}
