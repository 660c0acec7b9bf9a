package terminal

import (
	"fmt"

	"fiscalbridge/internal/domain/models"
	"fiscalbridge/pkg/tlv"
	"fiscalbridge/pkg/xmlmsg"
)

// command is a vendor-neutral terminal request type.
type command string

const (
	cmdInit       command = "INIT"
	cmdSale       command = "SALE"
	cmdPreAuth    command = "PREAUTH"
	cmdCapture    command = "CAPTURE"
	cmdVoid       command = "VOID"
	cmdRefund     command = "REFUND"
	cmdBatchClose command = "BATCH_CLOSE"
	cmdStatus     command = "STATUS"
	cmdCancel     command = "CANCEL"
)

func commandFor(t models.TxnType) command {
	return command(t)
}

// protocol converts vendor-neutral requests, keyed by xmlmsg field names, to and from the
// wire.
type protocol interface {
	encode(cmd command, params map[string]string) ([]byte, error)
	decode(raw []byte) (map[string]string, error)
	complete(buf []byte) bool
}

// tlvProtocol is the Ingenico binary variant.
type tlvProtocol struct {
	terminalID string
}

var tlvCommands = map[command]tlv.Command{
	cmdInit:       tlv.CmdInit,
	cmdSale:       tlv.CmdSale,
	cmdPreAuth:    tlv.CmdPreAuth,
	cmdCapture:    tlv.CmdCapture,
	cmdVoid:       tlv.CmdVoid,
	cmdRefund:     tlv.CmdRefund,
	cmdBatchClose: tlv.CmdBatchClose,
	cmdStatus:     tlv.CmdStatus,
	cmdCancel:     tlv.CmdCancel,
}

var tlvTags = map[string]tlv.Tag{
	xmlmsg.FieldAmount:          tlv.TagAmount,
	xmlmsg.FieldCurrency:        tlv.TagCurrency,
	xmlmsg.FieldTransactionType: tlv.TagTxnType,
	xmlmsg.FieldReference:       tlv.TagReference,
	xmlmsg.FieldOrigTxnID:       tlv.TagOrigTxnID,
	xmlmsg.FieldAuthCode:        tlv.TagAuthCode,
	xmlmsg.FieldCardNumber:      tlv.TagCardNumber,
	xmlmsg.FieldResponseCode:    tlv.TagRespCode,
	xmlmsg.FieldResponseMessage: tlv.TagRespMessage,
	xmlmsg.FieldTransactionID:   tlv.TagTxnID,
	xmlmsg.FieldBatchNumber:     tlv.TagBatchNumber,
	xmlmsg.FieldTxnCount:        tlv.TagTxnCount,
	xmlmsg.FieldCreditTotal:     tlv.TagCreditTotal,
	xmlmsg.FieldDebitTotal:      tlv.TagDebitTotal,
	xmlmsg.FieldCardType:        tlv.TagCardType,
}

func (p tlvProtocol) encode(cmd command, params map[string]string) ([]byte, error) {
	c, ok := tlvCommands[cmd]
	if !ok {
		return nil, fmt.Errorf("tlv: no command for %s", cmd)
	}
	fields := make(map[tlv.Tag]string, len(params)+1)
	for name, v := range params {
		tag, ok := tlvTags[name]
		if !ok {
			return nil, fmt.Errorf("tlv: no tag for %s", name)
		}
		fields[tag] = v
	}
	if p.terminalID != "" {
		fields[tlv.TagTerminalID] = p.terminalID
	}
	return tlv.Encode(c, fields)
}

func (p tlvProtocol) decode(raw []byte) (map[string]string, error) {
	m, err := tlv.Decode(tlv.Trim(raw))
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m.Fields))
	for name, tag := range tlvTags {
		if v, ok := m.Fields[tag]; ok {
			out[name] = v
		}
	}
	return out, nil
}

func (tlvProtocol) complete(buf []byte) bool { return tlv.Complete(buf) }

// xmlProtocol is the Verifone length-prefixed XML variant.
type xmlProtocol struct {
	codec xmlmsg.Codec
}

func (p xmlProtocol) encode(cmd command, params map[string]string) ([]byte, error) {
	return p.codec.Encode(string(cmd), params)
}

func (xmlProtocol) decode(raw []byte) (map[string]string, error) {
	m, err := xmlmsg.Decode(raw)
	if err != nil {
		return nil, err
	}
	return m.Params, nil
}

func (xmlProtocol) complete(buf []byte) bool { return xmlmsg.Complete(buf) }
