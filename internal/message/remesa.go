package message

import "github.com/kursadbilgin/rndc-gateway/internal/domain"

// RemesaPayload is a cargo consignment registration (procesoid 3).
type RemesaPayload struct {
	NitEmpresa                string `json:"nitEmpresa" validate:"required"`
	ConsecutivoRemesa         string `json:"consecutivoRemesa" validate:"required"`
	CodOperacionTransporte    string `json:"codOperacionTransporte" validate:"required"`
	CodNaturalezaCarga        string `json:"codNaturalezaCarga" validate:"required"`
	CantidadCargada           string `json:"cantidadCargada" validate:"required"`
	UnidadMedidaCapacidad     string `json:"unidadMedidaCapacidad" validate:"required"`
	CodTipoEmpaque            string `json:"codTipoEmpaque" validate:"required"`
	MercanciaRemesa           string `json:"mercanciaRemesa" validate:"required"`
	DescripcionCortaProducto  string `json:"descripcionCortaProducto" validate:"required"`
	CodTipoIDRemitente        string `json:"codTipoIdRemitente" validate:"required"`
	NumIDRemitente            string `json:"numIdRemitente" validate:"required"`
	CodSedeRemitente          string `json:"codSedeRemitente" validate:"required"`
	CodTipoIDDestinatario     string `json:"codTipoIdDestinatario" validate:"required"`
	NumIDDestinatario         string `json:"numIdDestinatario" validate:"required"`
	CodSedeDestinatario       string `json:"codSedeDestinatario" validate:"required"`
	CodTipoIDPropietario      string `json:"codTipoIdPropietario" validate:"required"`
	NumIDPropietario          string `json:"numIdPropietario" validate:"required"`
	CodSedePropietario        string `json:"codSedePropietario" validate:"required"`
	DuenoPoliza               string `json:"duenoPoliza"`
	NumPolizaTransporte       string `json:"numPolizaTransporte"`
	CompaniaSeguro            string `json:"companiaSeguro"`
	FechaVencimientoPoliza    string `json:"fechaVencimientoPoliza"`
	HorasPactoCarga           string `json:"horasPactoCarga" validate:"required"`
	MinutosPactoCarga         string `json:"minutosPactoCarga" validate:"required"`
	FechaCitaPactadaCargue    string `json:"fechaCitaPactadaCargue" validate:"required"`
	HoraCitaPactadaCargue     string `json:"horaCitaPactadaCargue" validate:"required"`
	HorasPactoDescargue       string `json:"horasPactoDescargue" validate:"required"`
	MinutosPactoDescargue     string `json:"minutosPactoDescargue" validate:"required"`
	FechaCitaPactadaDescargue string `json:"fechaCitaPactadaDescargue" validate:"required"`
	HoraCitaPactadaDescargue  string `json:"horaCitaPactadaDescargue" validate:"required"`
	Observaciones             string `json:"observaciones,omitempty"`
}

func (p RemesaPayload) Kind() domain.Kind { return domain.KindRemesa }
func (p RemesaPayload) Role() domain.Role { return domain.RoleRNDC }
func (p RemesaPayload) Reference() string { return p.ConsecutivoRemesa }

func (p RemesaPayload) solicitud() solicitud {
	return solicitud{tipo: tipoRegistro, procesoID: procesoRemesa}
}

func (p RemesaPayload) writeBody(w *writer) {
	fields := []Field{
		{"NUMNITEMPRESATRANSPORTE", p.NitEmpresa},
		{"CONSECUTIVOREMESA", p.ConsecutivoRemesa},
		{"CODOPERACIONTRANSPORTE", p.CodOperacionTransporte},
		{"CODNATURALEZACARGA", p.CodNaturalezaCarga},
		{"CANTIDADCARGADA", p.CantidadCargada},
		{"UNIDADMEDIDACAPACIDAD", p.UnidadMedidaCapacidad},
		{"CODTIPOEMPAQUE", p.CodTipoEmpaque},
		{"MERCANCIAREMESA", p.MercanciaRemesa},
		{"DESCRIPCIONCORTAPRODUCTO", p.DescripcionCortaProducto},
		{"CODTIPOIDREMITENTE", p.CodTipoIDRemitente},
		{"NUMIDREMITENTE", p.NumIDRemitente},
		{"CODSEDEREMITENTE", p.CodSedeRemitente},
		{"CODTIPOIDDESTINATARIO", p.CodTipoIDDestinatario},
		{"NUMIDDESTINATARIO", p.NumIDDestinatario},
		{"CODSEDEDESTINATARIO", p.CodSedeDestinatario},
		{"CODTIPOIDPROPIETARIO", p.CodTipoIDPropietario},
		{"NUMIDPROPIETARIO", p.NumIDPropietario},
		{"CODSEDEPROPIETARIO", p.CodSedePropietario},
		{"DUENOPOLIZA", p.DuenoPoliza},
		{"NUMPOLIZATRANSPORTE", p.NumPolizaTransporte},
		{"COMPANIASEGURO", p.CompaniaSeguro},
		{"FECHAVENCIMIENTOPOLIZACARGA", p.FechaVencimientoPoliza},
		{"HORASPACTOCARGA", p.HorasPactoCarga},
		{"MINUTOSPACTOCARGA", p.MinutosPactoCarga},
		{"FECHACITAPACTADACARGUE", p.FechaCitaPactadaCargue},
		{"HORACITAPACTADACARGUE", p.HoraCitaPactadaCargue},
		{"HORASPACTODESCARGUE", p.HorasPactoDescargue},
		{"MINUTOSPACTODESCARGUE", p.MinutosPactoDescargue},
		{"FECHACITAPACTADADESCARGUE", p.FechaCitaPactadaDescargue},
		{"HORACITAPACTADADESCARGUEREMESA", p.HoraCitaPactadaDescargue},
	}
	if p.Observaciones != "" {
		fields = append(fields, Field{"OBSERVACIONES", p.Observaciones})
	}
	w.variables(fields)
}
