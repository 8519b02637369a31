// Simple XMLRPC client/server for go
package xmlrpc

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Fault is an XML-RPC fault returned by a server.
type Fault struct {
	Code   int
	String string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("XMLRPC Fault: code=%v string=%v", f.Code, f.String)
}

// Fault codes emitted by Handler.
const (
	FaultInvalidRequest = 1
	FaultNoMethod       = 2
	FaultInvalidParams  = 3
	FaultCallFailed     = 4
	FaultInvalidResult  = 5
)

func xmlEscape(s string) string {
	var buffer bytes.Buffer
	xml.EscapeText(&buffer, []byte(s))
	return buffer.String()
}

func emitValue(buf *bytes.Buffer, value interface{}) error {
	switch v := value.(type) {
	case nil:
		// Encoded as an empty value, which decodes as "".
		return nil
	case []byte:
		buf.WriteString("<base64>")
		buf.WriteString(base64.StdEncoding.EncodeToString(v))
		buf.WriteString("</base64>")
		return nil
	}

	val := reflect.ValueOf(value)
	switch val.Kind() {
	case reflect.Bool:
		if val.Bool() {
			buf.WriteString("<boolean>1</boolean>")
		} else {
			buf.WriteString("<boolean>0</boolean>")
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fmt.Fprintf(buf, "<int>%d</int>", val.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		fmt.Fprintf(buf, "<int>%d</int>", val.Uint())
	case reflect.Float32, reflect.Float64:
		buf.WriteString("<double>")
		buf.WriteString(strconv.FormatFloat(val.Float(), 'g', -1, 64))
		buf.WriteString("</double>")
	case reflect.String:
		buf.WriteString("<string>")
		buf.WriteString(xmlEscape(val.String()))
		buf.WriteString("</string>")
	case reflect.Array, reflect.Slice:
		buf.WriteString("<array><data>")
		for i := 0; i < val.Len(); i++ {
			buf.WriteString("<value>")
			if err := emitValue(buf, val.Index(i).Interface()); err != nil {
				return err
			}
			buf.WriteString("</value>")
		}
		buf.WriteString("</data></array>")
	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return errors.New("map key must be string")
		}
		keys := make([]string, 0, val.Len())
		for _, k := range val.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		buf.WriteString("<struct>")
		for _, k := range keys {
			buf.WriteString("<member><name>")
			buf.WriteString(xmlEscape(k))
			buf.WriteString("</name><value>")
			if err := emitValue(buf, val.MapIndex(reflect.ValueOf(k).Convert(val.Type().Key())).Interface()); err != nil {
				return err
			}
			buf.WriteString("</value></member>")
		}
		buf.WriteString("</struct>")
	default:
		return errors.Errorf("cannot encode %T", value)
	}
	return nil
}

func emitRequest(buf *bytes.Buffer, method string, args ...interface{}) error {
	buf.WriteString(xml.Header)
	buf.WriteString("<methodCall><methodName>")
	buf.WriteString(xmlEscape(method))
	buf.WriteString("</methodName><params>")
	for _, arg := range args {
		buf.WriteString("<param><value>")
		if err := emitValue(buf, arg); err != nil {
			return err
		}
		buf.WriteString("</value></param>")
	}
	buf.WriteString("</params></methodCall>")
	return nil
}

func emitResponse(buf *bytes.Buffer, value interface{}) error {
	buf.WriteString(xml.Header)
	buf.WriteString("<methodResponse><params><param><value>")
	if err := emitValue(buf, value); err != nil {
		return err
	}
	buf.WriteString("</value></param></params></methodResponse>")
	return nil
}

func emitFault(buf *bytes.Buffer, code int, message string) {
	buf.Reset()
	buf.WriteString(xml.Header)
	buf.WriteString("<methodResponse><fault><value>")
	// A map of int and string always encodes.
	_ = emitValue(buf, map[string]interface{}{"faultCode": code, "faultString": message})
	buf.WriteString("</value></fault></methodResponse>")
}

// decoder walks an XML-RPC document token by token.
type decoder struct {
	*xml.Decoder
}

// next returns the next start or end element, skipping character data.
func (d decoder) next() (xml.Token, error) {
	for {
		token, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch token.(type) {
		case xml.StartElement, xml.EndElement:
			return token, nil
		}
	}
}

func (d decoder) expect(name string) error {
	token, err := d.next()
	if err != nil {
		return err
	}
	if se, ok := token.(xml.StartElement); !ok || se.Name.Local != name {
		return errors.Errorf("expected <%s>", name)
	}
	return nil
}

// text reads character data up to the closing tag of the current element.
func (d decoder) text() (string, error) {
	var sb strings.Builder
	for {
		token, err := d.Token()
		if err != nil {
			return "", err
		}
		switch t := token.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			return sb.String(), nil
		case xml.StartElement:
			return "", errors.Errorf("unexpected <%s> in scalar", t.Name.Local)
		}
	}
}

// value parses the content of a <value> element whose start tag has been
// consumed. On return the closing </value> has been read.
func (d decoder) value() (interface{}, error) {
	var untyped strings.Builder
	for {
		token, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.CharData:
			untyped.Write(t)
		case xml.EndElement:
			// <value>text</value> without a type tag is a string.
			return untyped.String(), nil
		case xml.StartElement:
			v, err := d.typed(t.Name.Local)
			if err != nil {
				return nil, err
			}
			if err := d.closeValue(); err != nil {
				return nil, err
			}
			return v, nil
		}
	}
}

func (d decoder) closeValue() error {
	token, err := d.next()
	if err != nil {
		return err
	}
	if ee, ok := token.(xml.EndElement); !ok || ee.Name.Local != "value" {
		return errors.New("expected </value>")
	}
	return nil
}

func (d decoder) typed(kind string) (interface{}, error) {
	switch kind {
	case "array":
		return d.array()
	case "struct":
		return d.structure()
	}
	s, err := d.text()
	if err != nil {
		return nil, err
	}
	switch kind {
	case "boolean":
		switch strings.TrimSpace(s) {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return nil, errors.Errorf("invalid boolean %q", s)
	case "i4", "int":
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return nil, errors.Wrap(err, "int")
		}
		return int32(i), nil
	case "double":
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, errors.Wrap(err, "double")
		}
		return f, nil
	case "string":
		return s, nil
	case "base64":
		bs, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return nil, errors.Wrap(err, "base64")
		}
		return bs, nil
	default:
		return nil, errors.Errorf("unsupported type <%s>", kind)
	}
}

func (d decoder) array() (interface{}, error) {
	if err := d.expect("data"); err != nil {
		return nil, err
	}
	a := []interface{}{}
	for {
		token, err := d.next()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local != "value" {
				return nil, errors.Errorf("unexpected <%s> in array", t.Name.Local)
			}
			v, err := d.value()
			if err != nil {
				return nil, err
			}
			a = append(a, v)
		case xml.EndElement:
			if t.Name.Local == "array" {
				return a, nil
			}
		}
	}
}

func (d decoder) structure() (interface{}, error) {
	m := make(map[string]interface{})
	var name string
	for {
		token, err := d.next()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "member":
			case "name":
				if name, err = d.text(); err != nil {
					return nil, err
				}
			case "value":
				v, err := d.value()
				if err != nil {
					return nil, err
				}
				m[name] = v
			default:
				return nil, errors.Errorf("unexpected <%s> in struct", t.Name.Local)
			}
		case xml.EndElement:
			if t.Name.Local == "struct" {
				return m, nil
			}
		}
	}
}

func parseRequest(r io.Reader) (string, []interface{}, error) {
	d := decoder{xml.NewDecoder(r)}
	if err := d.expect("methodCall"); err != nil {
		return "", nil, err
	}
	if err := d.expect("methodName"); err != nil {
		return "", nil, err
	}
	name, err := d.text()
	if err != nil {
		return "", nil, err
	}
	name = strings.TrimSpace(name)
	var args []interface{}
	for {
		token, err := d.next()
		if err == io.EOF {
			return name, args, nil
		}
		if err != nil {
			return "", nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "value" {
				v, err := d.value()
				if err != nil {
					return "", nil, err
				}
				args = append(args, v)
			}
		case xml.EndElement:
			if t.Name.Local == "methodCall" {
				return name, args, nil
			}
		}
	}
}

func parseResponse(r io.Reader) (interface{}, error) {
	d := decoder{xml.NewDecoder(r)}
	if err := d.expect("methodResponse"); err != nil {
		return nil, err
	}
	token, err := d.next()
	if err != nil {
		return nil, err
	}
	se, ok := token.(xml.StartElement)
	if !ok {
		return nil, errors.New("empty methodResponse")
	}
	switch se.Name.Local {
	case "params":
		if err := d.expect("param"); err != nil {
			return nil, err
		}
		if err := d.expect("value"); err != nil {
			return nil, err
		}
		return d.value()
	case "fault":
		if err := d.expect("value"); err != nil {
			return nil, err
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, errors.New("malformed XMLRPC fault response")
		}
		code, _ := m["faultCode"].(int32)
		s, _ := m["faultString"].(string)
		return nil, &Fault{Code: int(code), String: s}
	}
	return nil, errors.Errorf("unexpected <%s> in methodResponse", se.Name.Local)
}

// Call a XMLRPC API in a remote host.
// Args:
//   url string: URL of the remote host
func Call(url string, method string, args ...interface{}) (interface{}, error) {
	return CallWith(http.DefaultClient, url, method, args...)
}

// CallWith is Call using the given HTTP client.
func CallWith(client *http.Client, url string, method string, args ...interface{}) (interface{}, error) {
	var buffer bytes.Buffer
	if err := emitRequest(&buffer, method, args...); err != nil {
		return nil, errors.Wrap(err, "building request failed")
	}
	r, err := client.Post(url, "text/xml", &buffer)
	if err != nil {
		return nil, errors.Wrap(err, "sending request failed")
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		return nil, errors.Errorf("HTTP failed with code %v", r.Status)
	}
	res, err := parseResponse(r.Body)
	if _, ok := err.(*Fault); ok {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "parsing response failed")
	}
	return res, nil
}

// Method is a function taking XML-RPC compatible arguments and returning
// (result, error).
type Method interface{}

// Handler serves XML-RPC calls by dispatching to registered methods.
type Handler struct {
	mu      sync.RWMutex
	mapping map[string]Method
	wait    sync.WaitGroup
}

func NewHandler(mapping map[string]Method) *Handler {
	handler := &Handler{mapping: make(map[string]Method)}
	for name, m := range mapping {
		handler.mapping[name] = m
	}
	return handler
}

// Register adds or replaces a method.
func (h *Handler) Register(name string, method Method) {
	h.mu.Lock()
	h.mapping[name] = method
	h.mu.Unlock()
}

// Methods returns the registered method names in sorted order.
func (h *Handler) Methods() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.mapping)+1)
	for name := range h.mapping {
		names = append(names, name)
	}
	names = append(names, "system.listMethods")
	sort.Strings(names)
	return names
}

func (h *Handler) WaitForShutdown() {
	h.wait.Wait()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.wait.Add(1)
	defer h.wait.Done()

	var buffer bytes.Buffer
	name, args, err := parseRequest(req.Body)
	if err != nil {
		emitFault(&buffer, FaultInvalidRequest, "Invalid request.")
		h.write(w, &buffer)
		return
	}

	if name == "system.listMethods" {
		if err := emitResponse(&buffer, h.Methods()); err != nil {
			emitFault(&buffer, FaultInvalidResult, err.Error())
		}
		h.write(w, &buffer)
		return
	}

	h.mu.RLock()
	method, ok := h.mapping[name]
	h.mu.RUnlock()
	if !ok {
		emitFault(&buffer, FaultNoMethod, fmt.Sprintf("No method named '%v'.", name))
		h.write(w, &buffer)
		return
	}

	result, code, err := invoke(method, args)
	if err != nil {
		emitFault(&buffer, code, fmt.Sprintf("Method '%v' failed: %v", name, err))
		h.write(w, &buffer)
		return
	}
	if err := emitResponse(&buffer, result); err != nil {
		emitFault(&buffer, FaultInvalidResult, fmt.Sprintf("Method '%v' return an invalid result type.", name))
	}
	h.write(w, &buffer)
}

func (h *Handler) write(w http.ResponseWriter, buffer *bytes.Buffer) {
	w.Header().Set("Content-Type", "text/xml")
	w.Header().Set("Content-Length", strconv.Itoa(buffer.Len()))
	buffer.WriteTo(w)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// invoke calls method with args converted to its parameter types.
func invoke(method Method, args []interface{}) (result interface{}, code int, err error) {
	fn := reflect.ValueOf(method)
	ft := fn.Type()
	if ft.Kind() != reflect.Func || ft.NumOut() != 2 || !ft.Out(1).Implements(errorType) {
		return nil, FaultInvalidResult, errors.New("method has an invalid signature")
	}
	if ft.NumIn() != len(args) {
		return nil, FaultInvalidParams, errors.Errorf("expected %d params, got %d", ft.NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		want := ft.In(i)
		v := reflect.ValueOf(arg)
		switch {
		case !v.IsValid():
			return nil, FaultInvalidParams, errors.Errorf("param %d is empty", i)
		case v.Type().AssignableTo(want):
		case isNumber(v.Kind()) && isNumber(want.Kind()):
			v = v.Convert(want)
		default:
			return nil, FaultInvalidParams, errors.Errorf("param %d: cannot use %T as %v", i, arg, want)
		}
		in[i] = v
	}

	defer func() {
		if r := recover(); r != nil {
			result, code, err = nil, FaultCallFailed, errors.Errorf("panic: %v", r)
		}
	}()
	out := fn.Call(in)
	if e := out[1]; !e.IsNil() {
		return nil, FaultCallFailed, e.Interface().(error)
	}
	return out[0].Interface(), 0, nil
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
