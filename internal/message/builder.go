// Package message renders typed RNDC payloads into the XML dialect accepted by
// the RegistrarDatosMin operation. Rendering is pure: the same payload and
// credentials always produce the same bytes.
package message

import (
	"strings"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
)

const (
	headerRNDC = "<?xml version='1.0' encoding='ISO-8859-1' ?>"
	headerGPS  = "<?xml version='1.0' encoding='iso-8859-1' ?>"
)

// Solicitud codes per message family.
const (
	tipoRegistro     = "1"
	tipoConsulta     = "3"
	tipoRegistroGPS  = "4"
	tipoConsultaGPS  = "9"
	procesoRemesa    = "3"
	procesoManifiest = "4"
	procesoCumplRem  = "5"
	procesoCumplMan  = "6"
	procesoRemesaMan = "43"
	procesoPuntoGPS  = "60"
)

// Credentials is the username/password pair of one actor role.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Field is one ordered RNDC variable.
type Field struct {
	Name  string `json:"name" validate:"required,alphanum"`
	Value string `json:"value"`
}

type solicitud struct {
	tipo      string
	procesoID string
}

// Payload is a typed business record of one message kind. The set of
// implementations is closed to this package.
type Payload interface {
	Kind() domain.Kind
	Role() domain.Role
	// Reference is the business key shown next to the submission (consecutive, manifest number, plate).
	Reference() string
	solicitud() solicitud
	writeBody(w *writer)
}

// Build renders the complete XML document for a payload.
func Build(p Payload, creds Credentials) string {
	s := p.solicitud()

	w := &writer{}
	if p.Role() == domain.RoleGPS {
		w.line(headerGPS)
	} else {
		w.line(headerRNDC)
	}
	w.open("root")
	w.open("acceso")
	w.element("username", creds.Username)
	w.element("password", creds.Password)
	w.close("acceso")
	w.open("solicitud")
	w.element("tipo", s.tipo)
	w.element("procesoid", s.procesoID)
	w.close("solicitud")
	p.writeBody(w)
	w.close("root")

	return w.String()
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

type writer struct {
	b strings.Builder
}

func (w *writer) line(s string) {
	w.b.WriteString(s)
	w.b.WriteByte('\n')
}

func (w *writer) open(name string) {
	w.line("<" + name + ">")
}

func (w *writer) openAttr(name, attrName, attrValue string) {
	w.line("<" + name + " " + attrName + "=\"" + textEscaper.Replace(attrValue) + "\">")
}

func (w *writer) close(name string) {
	w.line("</" + name + ">")
}

func (w *writer) element(name, value string) {
	w.line("<" + name + ">" + textEscaper.Replace(value) + "</" + name + ">")
}

func (w *writer) fields(fields []Field) {
	for _, f := range fields {
		w.element(f.Name, f.Value)
	}
}

func (w *writer) variables(fields []Field) {
	w.open("variables")
	w.fields(fields)
	w.close("variables")
}

func (w *writer) String() string {
	return w.b.String()
}
