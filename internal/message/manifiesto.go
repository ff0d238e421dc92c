package message

import "github.com/kursadbilgin/rndc-gateway/internal/domain"

// ManifiestoPayload is a cargo transport manifest registration (procesoid 4)
// referencing previously registered remesas.
type ManifiestoPayload struct {
	NitEmpresa               string   `json:"nitEmpresa" validate:"required"`
	NumManifiestoCarga       string   `json:"numManifiestoCarga" validate:"required"`
	CodOperacionTransporte   string   `json:"codOperacionTransporte" validate:"required"`
	FechaExpedicion          string   `json:"fechaExpedicion" validate:"required"`
	CodMunicipioOrigen       string   `json:"codMunicipioOrigen" validate:"required"`
	CodMunicipioDestino      string   `json:"codMunicipioDestino" validate:"required"`
	CodIDTitular             string   `json:"codIdTitular" validate:"required"`
	NumIDTitular             string   `json:"numIdTitular" validate:"required"`
	NumPlaca                 string   `json:"numPlaca" validate:"required"`
	NumPlacaRemolque         string   `json:"numPlacaRemolque"`
	CodIDConductor           string   `json:"codIdConductor" validate:"required"`
	NumIDConductor           string   `json:"numIdConductor" validate:"required"`
	ValorFletePactado        string   `json:"valorFletePactado" validate:"required"`
	RetencionFuente          string   `json:"retencionFuente"`
	RetencionICA             string   `json:"retencionIca"`
	ValorAnticipo            string   `json:"valorAnticipo"`
	CodMunicipioPagoSaldo    string   `json:"codMunicipioPagoSaldo" validate:"required"`
	FechaPagoSaldo           string   `json:"fechaPagoSaldo" validate:"required"`
	CodResponsablePagoCargue string   `json:"codResponsablePagoCargue" validate:"required"`
	CodResponsablePagoDesc   string   `json:"codResponsablePagoDescargue" validate:"required"`
	Observaciones            string   `json:"observaciones,omitempty"`
	Remesas                  []string `json:"remesas" validate:"required,min=1,dive,required"`
}

func (p ManifiestoPayload) Kind() domain.Kind { return domain.KindManifiesto }
func (p ManifiestoPayload) Role() domain.Role { return domain.RoleRNDC }
func (p ManifiestoPayload) Reference() string { return p.NumManifiestoCarga }

func (p ManifiestoPayload) solicitud() solicitud {
	return solicitud{tipo: tipoRegistro, procesoID: procesoManifiest}
}

func (p ManifiestoPayload) writeBody(w *writer) {
	w.open("variables")
	w.fields([]Field{
		{"NUMNITEMPRESATRANSPORTE", p.NitEmpresa},
		{"NUMMANIFIESTOCARGA", p.NumManifiestoCarga},
		{"CODOPERACIONTRANSPORTE", p.CodOperacionTransporte},
		{"FECHAEXPEDICIONMANIFIESTO", p.FechaExpedicion},
		{"CODMUNICIPIOORIGENMANIFIESTO", p.CodMunicipioOrigen},
		{"CODMUNICIPIODESTINOMANIFIESTO", p.CodMunicipioDestino},
		{"CODIDTITULARMANIFIESTO", p.CodIDTitular},
		{"NUMIDTITULARMANIFIESTO", p.NumIDTitular},
		{"NUMPLACA", p.NumPlaca},
		{"NUMPLACAREMOLQUE", p.NumPlacaRemolque},
		{"CODIDCONDUCTOR", p.CodIDConductor},
		{"NUMIDCONDUCTOR", p.NumIDConductor},
		{"VALORFLETEPACTADOVIAJE", p.ValorFletePactado},
		{"RETENCIONFUENTEMANIFIESTO", p.RetencionFuente},
		{"RETENCIONICAMANIFIESTOCARGA", p.RetencionICA},
		{"VALORANTICIPOMANIFIESTO", p.ValorAnticipo},
		{"CODMUNICIPIOPAGOSALDO", p.CodMunicipioPagoSaldo},
		{"FECHAPAGOSALDOMANIFIESTO", p.FechaPagoSaldo},
		{"CODRESPONSABLEPAGOCARGUE", p.CodResponsablePagoCargue},
		{"CODRESPONSABLEPAGODESCARGUE", p.CodResponsablePagoDesc},
	})
	if p.Observaciones != "" {
		w.element("OBSERVACIONES", p.Observaciones)
	}
	w.openAttr("REMESASMAN", "procesoid", procesoRemesaMan)
	for _, consecutivo := range p.Remesas {
		w.open("REMESA")
		w.element("CONSECUTIVOREMESA", consecutivo)
		w.close("REMESA")
	}
	w.close("REMESASMAN")
	w.close("variables")
}
