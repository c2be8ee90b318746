// Package iso8583 exposes card validation over ISO 8583: an 0100 request
// carrying the card is answered with an 0110 whose DE39 tells whether the card
// passed the local checks. Nothing is forwarded to an issuer.
package iso8583

import (
	"context"
	"fmt"
	"io"

	"github.com/alovak/cardflow-validator/internal/cardgen"
	"github.com/alovak/cardflow-validator/internal/expiry"
	"github.com/alovak/cardflow-validator/validator/models"
	"github.com/moov-io/iso8583"
	connection "github.com/moov-io/iso8583-connection"
	"github.com/moov-io/iso8583-connection/server"
	"github.com/moov-io/iso8583/network"
	"golang.org/x/exp/slog"
)

// Spec is the message layout used on both ends of the wire.
var Spec = iso8583.Spec87

const (
	mtiRequest  = "0100"
	mtiResponse = "0110"

	fieldPAN    = 2
	fieldSTAN   = 11
	fieldExpiry = 14
	fieldResp   = 39
	fieldCVV    = 48
)

// DE39 values.
const (
	CodeApproved      = "00"
	CodeInvalidCard   = "14"
	CodeFormatError   = "30"
	CodeExpired       = "54"
	CodeNotPermitted  = "57"
	CodeBadCVV        = "82"
	CodeInvalidTxType = "12"
)

// CardChecker validates one card record.
type CardChecker interface {
	ValidateCard(ctx context.Context, rec models.RawCardRecord) models.ValidationResult
}

type Server struct {
	Addr string

	logger  *slog.Logger
	checker CardChecker
	server  *server.Server
}

func NewServer(logger *slog.Logger, addr string, checker CardChecker) *Server {
	return &Server{
		Addr:    addr,
		logger:  logger.With(slog.String("component", "iso8583")),
		checker: checker,
	}
}

func (s *Server) Start() error {
	s.server = server.New(Spec, ReadMessageLength, WriteMessageLength,
		connection.InboundMessageHandler(s.handleMessage),
	)

	if err := s.server.Start(s.Addr); err != nil {
		return fmt.Errorf("starting iso8583 server: %w", err)
	}
	s.Addr = s.server.Addr
	s.logger.Info("iso8583 server started", slog.String("addr", s.Addr))

	return nil
}

func (s *Server) Close() error {
	if s.server != nil {
		s.server.Close()
	}
	return nil
}

func (s *Server) handleMessage(c *connection.Connection, message *iso8583.Message) {
	resp, err := s.respond(message)
	if err != nil {
		s.logger.Error("building response", "err", err)
		return
	}
	if err := c.Reply(resp); err != nil {
		s.logger.Error("replying to message", "err", err)
	}
}

func (s *Server) respond(message *iso8583.Message) (*iso8583.Message, error) {
	mti, err := message.GetMTI()
	if err != nil {
		return nil, fmt.Errorf("getting mti: %w", err)
	}
	stan, err := message.GetString(fieldSTAN)
	if err != nil {
		return nil, fmt.Errorf("getting stan: %w", err)
	}

	code := CodeInvalidTxType
	if mti == mtiRequest {
		code = s.check(message)
	} else {
		s.logger.Info("unsupported mti", slog.String("mti", mti))
	}

	resp := iso8583.NewMessage(Spec)
	resp.MTI(mtiResponse)
	if stan != "" {
		if err := resp.Field(fieldSTAN, stan); err != nil {
			return nil, fmt.Errorf("setting stan: %w", err)
		}
	}
	if err := resp.Field(fieldResp, code); err != nil {
		return nil, fmt.Errorf("setting response code: %w", err)
	}
	return resp, nil
}

// check maps the request onto a card record. DE14 arrives as YYMM and is
// turned into the card-face MM/YY the validator expects.
func (s *Server) check(message *iso8583.Message) string {
	pan, _ := message.GetString(fieldPAN)
	yymm, _ := message.GetString(fieldExpiry)
	cvv, _ := message.GetString(fieldCVV)
	if pan == "" {
		return CodeFormatError
	}
	face, err := expiry.YYMMToCardFace(yymm)
	if err != nil {
		return CodeFormatError
	}

	res := s.checker.ValidateCard(context.Background(), models.RawCardRecord{
		Number:     pan,
		Expiration: face,
		CVV:        cvv,
	})
	s.logger.Info("card checked",
		slog.String("pan", cardgen.MaskPAN(pan)),
		slog.Bool("valid", res.Valid),
		slog.String("brand", string(res.Brand)),
	)
	return ResponseCode(res)
}

// ResponseCode picks the DE39 value for a validation result.
func ResponseCode(res models.ValidationResult) string {
	if res.Valid {
		return CodeApproved
	}
	switch res.Reason {
	case models.ReasonExpiration:
		return CodeFormatError
	case models.ReasonExpired:
		return CodeExpired
	case models.ReasonCVV:
		return CodeBadCVV
	case models.ReasonBrand:
		return CodeNotPermitted
	default:
		return CodeInvalidCard
	}
}

// ReadMessageLength reads the two byte binary length header.
func ReadMessageLength(r io.Reader) (int, error) {
	header := network.NewBinary2BytesHeader()
	_, err := header.ReadFrom(r)
	if err != nil {
		return 0, fmt.Errorf("reading message header: %w", err)
	}
	return header.Length(), nil
}

// WriteMessageLength writes the two byte binary length header.
func WriteMessageLength(w io.Writer, length int) (int, error) {
	header := network.NewBinary2BytesHeader()
	header.SetLength(length)
	n, err := header.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("writing message header: %w", err)
	}
	return n, nil
}
