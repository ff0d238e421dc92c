package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/rndc-gateway/internal/domain"
)

const (
	DefaultProductionURL = "http://rndcws.mintransporte.gov.co:8080/soap/IBPMServices"
	DefaultTestURL       = "http://plc.mintransporte.gov.co:8080/soap/IBPMServices"

	soapContentType = "text/xml; charset=utf-8"
	soapAction      = "http://tempuri.org/RegistrarDatosMin"

	envelopeOpen = `<?xml version="1.0" encoding="utf-8"?>` +
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" ` +
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" ` +
		`xmlns:xsd="http://www.w3.org/2001/XMLSchema">` +
		`<soap:Body><RegistrarDatosMin xmlns="http://tempuri.org/"><Mensaje><![CDATA[`
	envelopeClose = `]]></Mensaje></RegistrarDatosMin></soap:Body></soap:Envelope>`
)

// SOAPClient posts RNDC documents to the RegistrarDatosMin operation.
// It never retries: a resend could register a document twice upstream.
type SOAPClient struct {
	client     *resty.Client
	defaultURL string
}

// NewSOAPClient builds a client with the given request timeout. A zero timeout
// leaves requests unbounded apart from the caller's context.
func NewSOAPClient(defaultURL string, timeout time.Duration) (*SOAPClient, error) {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return NewSOAPClientWithClient(defaultURL, client)
}

func NewSOAPClientWithClient(defaultURL string, client *resty.Client) (*SOAPClient, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	trimmed := strings.TrimSpace(defaultURL)
	if trimmed == "" {
		trimmed = DefaultProductionURL
	}
	client.SetRetryCount(0)

	return &SOAPClient{
		client:     client,
		defaultURL: trimmed,
	}, nil
}

func (c *SOAPClient) Send(ctx context.Context, document, targetURL string) (*Result, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("soap client is not initialized")
	}
	if strings.TrimSpace(document) == "" {
		return nil, fmt.Errorf("%w: document is required", domain.ErrValidation)
	}

	endpoint := strings.TrimSpace(targetURL)
	if endpoint == "" {
		endpoint = c.defaultURL
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", soapContentType).
		SetHeader("SOAPAction", soapAction).
		SetBody(Envelope(document)).
		Post(endpoint)
	if err != nil {
		transportErr := &TransportError{Message: "request to RNDC failed", Cause: err}
		return &Result{
			Success: false,
			Code:    CodeTransportError,
			Message: transportErr.Error(),
			RawXML:  "",
		}, nil
	}

	statusCode := response.StatusCode()
	body := toUTF8(response.Body(), response.Header().Get("Content-Type"))

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return &Result{
			Success:    false,
			Code:       fmt.Sprintf("HTTP_%d", statusCode),
			Message:    fmt.Sprintf("RNDC returned status %d", statusCode),
			RawXML:     body,
			StatusCode: statusCode,
		}, nil
	}

	result := Interpret(body)
	result.StatusCode = statusCode
	return &result, nil
}

// Envelope wraps an RNDC document in the SOAP 1.1 RegistrarDatosMin request.
func Envelope(document string) string {
	return envelopeOpen + strings.ReplaceAll(document, "]]>", "]]]]><![CDATA[>") + envelopeClose
}
