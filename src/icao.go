package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Hand-off point to the ATN application layer.
 *
 * Description:	COTP user data is an ATN upper layer PDU (session,
 *		presentation, then CPDLC, ADS-C or ACSE in ASN.1 PER).
 *		Decoding that is somebody else's job.  The default
 *		decoder here keeps it as raw octets.
 *
 *------------------------------------------------------------------*/

import (
	"sync"
)

type AppDecoder interface {
	// Never fails.  Anything undecodable comes back as a raw node.
	Decode(buf []byte, downlink bool) *ProtoNode
}

type RawAppDecoder struct{}

func (RawAppDecoder) Decode(buf []byte, _ bool) *ProtoNode {
	if len(buf) == 0 {
		return nil
	}
	return new_node("icao_apdu", &RawData{Reason: "", Data: buf}, nil)
}

// Adapter so a plain function can be an AppDecoder.
type AppDecoderFunc func(buf []byte, downlink bool) *ProtoNode

func (f AppDecoderFunc) Decode(buf []byte, downlink bool) *ProtoNode {
	return f(buf, downlink)
}

var (
	app_decoder_mu sync.RWMutex
	app_decoder    AppDecoder = RawAppDecoder{}
)

// Replace the application layer decoder.  nil restores the default.

func SetAppDecoder(d AppDecoder) {
	app_decoder_mu.Lock()
	defer app_decoder_mu.Unlock()

	if d == nil {
		d = RawAppDecoder{}
	}
	app_decoder = d
}

func decode_app(buf []byte, downlink bool) *ProtoNode {
	app_decoder_mu.RLock()
	var d = app_decoder
	app_decoder_mu.RUnlock()

	return d.Decode(buf, downlink)
}
