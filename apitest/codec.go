package apitest

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/todo-manager/api-contract-tests/servicedef"
)

// payload is a decoded request body. Values decoded from XML are always strings.
type payload struct {
	values  map[string]interface{}
	textual bool
}

func (p payload) has(key string) bool {
	_, ok := p.values[key]
	return ok
}

func readPayload(r *http.Request) (payload, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return payload{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return payload{values: map[string]interface{}{}}, nil
	}
	if strings.Contains(r.Header.Get("Content-Type"), "xml") {
		values, err := decodeXML(data)
		return payload{values: values, textual: true}, err
	}
	var values map[string]interface{}
	if err := json.Unmarshal(data, &values); err != nil {
		return payload{}, fmt.Errorf("malformed JSON body: %w", err)
	}
	if values == nil {
		values = map[string]interface{}{}
	}
	return payload{values: values}, nil
}

// decodeXML reads a flat document such as <todo><title>x</title></todo>.
func decodeXML(data []byte) (map[string]interface{}, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	values := make(map[string]interface{})
	depth := 0
	var field string
	var text strings.Builder
	sawRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed XML body: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				sawRoot = true
			case 2:
				field = t.Name.Local
				text.Reset()
			default:
				return nil, fmt.Errorf("malformed XML body: unexpected element <%s>", t.Name.Local)
			}
		case xml.CharData:
			if depth == 2 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 2 {
				values[field] = text.String()
			}
			depth--
		}
	}
	if !sawRoot {
		return nil, errors.New("malformed XML body: no root element")
	}
	return values, nil
}

// attributes validates a payload against the schema of kind and returns the attribute values
// it sets. An "id" key must be handled by the caller first. If mandatory is true, every
// mandatory field must be present and non-empty.
func attributes(kind servicedef.Kind, p payload, mandatory bool) (map[string]string, []string) {
	ret := make(map[string]string)
	var problems []string
	for key, v := range p.values {
		if key == servicedef.FieldID {
			continue
		}
		spec, ok := findField(kind, key)
		if !ok {
			problems = append(problems, "Could not find field: "+key)
			continue
		}
		switch value := v.(type) {
		case bool:
			if !spec.boolean {
				problems = append(problems, fmt.Sprintf("Failed Validation: %s should be STRING", key))
				continue
			}
			ret[key] = strconv.FormatBool(value)
		case string:
			if spec.boolean {
				b, err := strconv.ParseBool(value)
				if !p.textual || err != nil {
					problems = append(problems, fmt.Sprintf("Failed Validation: %s should be BOOLEAN", key))
					continue
				}
				ret[key] = strconv.FormatBool(b)
				continue
			}
			ret[key] = value
		case nil:
			if spec.boolean {
				problems = append(problems, fmt.Sprintf("Failed Validation: %s should be BOOLEAN", key))
			}
		default:
			kindName := "STRING"
			if spec.boolean {
				kindName = "BOOLEAN"
			}
			problems = append(problems, fmt.Sprintf("Failed Validation: %s should be %s", key, kindName))
		}
	}
	if mandatory {
		for _, spec := range schemas[kind] {
			if spec.mandatory && ret[spec.name] == "" {
				problems = append(problems, spec.name+" : field is mandatory")
			}
		}
	}
	return ret, problems
}

// payloadID extracts the "id" key of a payload as a string.
func payloadID(p payload) (string, bool) {
	switch v := p.values[servicedef.FieldID].(type) {
	case string:
		return strings.TrimSpace(v), v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}

// object is a JSON object whose members keep their order.
type object []member

type member struct {
	key   string
	value interface{} // string, object, []object or []string
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(m.key)
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(m.value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o object) writeXML(buf *bytes.Buffer) {
	for _, m := range o {
		switch v := m.value.(type) {
		case string:
			writeXMLText(buf, m.key, v)
		case object:
			buf.WriteString("<" + m.key + ">")
			v.writeXML(buf)
			buf.WriteString("</" + m.key + ">")
		case []object:
			for _, item := range v {
				buf.WriteString("<" + m.key + ">")
				item.writeXML(buf)
				buf.WriteString("</" + m.key + ">")
			}
		case []string:
			buf.WriteString("<" + m.key + ">")
			for _, s := range v {
				writeXMLText(buf, strings.TrimSuffix(m.key, "s"), s)
			}
			buf.WriteString("</" + m.key + ">")
		}
	}
}

func writeXMLText(buf *bytes.Buffer, name, text string) {
	buf.WriteString("<" + name + ">")
	_ = xml.EscapeText(buf, []byte(text))
	buf.WriteString("</" + name + ">")
}

func wantsXML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "xml") && !strings.Contains(accept, "json")
}

// write sends jsonDoc, or xmlDoc if the client asked for XML.
func write(w http.ResponseWriter, r *http.Request, status int, jsonDoc interface{}, xmlDoc object) {
	var buf bytes.Buffer
	if wantsXML(r) {
		w.Header().Set("Content-Type", "application/xml")
		xmlDoc.writeXML(&buf)
	} else {
		w.Header().Set("Content-Type", "application/json")
		data, _ := json.Marshal(jsonDoc)
		buf.Write(data)
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeEntity(w http.ResponseWriter, r *http.Request, status int, kind servicedef.Kind, e object) {
	write(w, r, status, e, object{{key: kind.Singular(), value: e}})
}

func writeList(w http.ResponseWriter, r *http.Request, kind servicedef.Kind, entities []object) {
	items := make(object, 0, len(entities))
	for _, e := range entities {
		items = append(items, member{key: kind.Singular(), value: e})
	}
	if entities == nil {
		entities = []object{}
	}
	write(w, r, http.StatusOK,
		object{{key: kind.EnvelopeKey(), value: entities}},
		object{{key: kind.EnvelopeKey(), value: items}})
}

func writeErrors(w http.ResponseWriter, r *http.Request, status int, messages ...string) {
	doc := object{{key: "errorMessages", value: messages}}
	write(w, r, status, doc, doc)
}
