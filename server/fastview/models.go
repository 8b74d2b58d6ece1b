// fastview implements a builder pattern for simple server-side views:
// given an input data format, apply a transformation to a view-model,
// and then multiplex that data to one or more views, each of which emits
// element updates for the page.
package fastview

import (
	"html/template"
)

// EleUpdate is an element identifier and a set of operations to apply to its attributes/content.
type EleUpdate struct {
	// The id by which to find the element
	EleId string
	// Op keys are attrib keys or one of the reserved keys below, values are the strings to which
	// these are set. Example: ('src','data:...') means 'set attribute src'.
	Ops []Op
}

// Reserved op keys handled specially by the page script.
const (
	// ('textContent','abc') means 'set ele.textContent to abc'.
	KeyText = "textContent"
	// ('hidden','true') hides the element, any other value shows it.
	KeyHidden = "hidden"
	// ('value','7') sets the value property of an input.
	KeyValue = "value"
)

// Op is a key and value. For example an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// ViewComponent implements server side views: Parse to add their initial form to
// the page template and Updates to obtain the chan by which ele-updates are notified.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse parses the view-component and adds it to the passed parent template, thus inheriting
	// or possibly extending its definition (func-map, etc). It returns the defined template's name.
	Parse(*template.Template) (string, error)
}
