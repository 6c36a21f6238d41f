package client

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/draw"
	"image/png"
	"net"
	"time"

	"github.com/l16dev/rmi/internal/rmiproto"
	"github.com/l16dev/rmi/internal/wire"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// maxScreencapDimension rejects implausible width/height read from the PNG
// header before decoding (spec §4.3, boundary behavior).
const maxScreencapDimension = 4096

// doScreencap runs the Screencap-kind response parser (spec §4.3 table):
// verify the PNG signature and header dimensions before spending a decode
// on untrusted device-supplied bytes.
func (c *Client) doScreencap(conn net.Conn) error {
	payload, err := receiveSkippingHeartbeats(conn, 0, time.Now().Add(screencapTimeout), c.stop)
	if err != nil {
		if isFatal(err) {
			return err
		}
		c.setScreencapError(err.Error())
		return nil
	}
	if wire.PayloadStartsWith(payload, rmiproto.RespErrPrefix) {
		c.setScreencapError(string(payload))
		return nil
	}

	width, height, err := peekPNGDimensions(payload)
	if err != nil {
		c.setScreencapError(newDecodeError(err.Error()).Error())
		return nil
	}
	if width > maxScreencapDimension || height > maxScreencapDimension {
		c.setScreencapError(newDecodeError("dimensions exceed 4096x4096").Error())
		return nil
	}

	img, err := png.Decode(bytes.NewReader(payload))
	if err != nil {
		c.setScreencapError(newDecodeError(err.Error()).Error())
		return nil
	}

	pixels := toRGBA8(img)
	c.setScreencap(append([]byte(nil), payload...), pixels, width, height)
	return nil
}

// peekPNGDimensions validates the 8-byte PNG signature and reads width and
// height straight out of the leading IHDR chunk (bytes 16:20 and 20:24,
// big-endian) without a full decode, per spec §4.3's "reject dimensions
// ... from the PNG header" — the check exists precisely to avoid decoding
// an oversized image just to learn its size is over budget.
func peekPNGDimensions(payload []byte) (width, height int, err error) {
	if len(payload) < 24 || !bytes.Equal(payload[:8], pngSignature) {
		return 0, 0, errors.New("missing PNG signature")
	}
	w := binary.BigEndian.Uint32(payload[16:20])
	h := binary.BigEndian.Uint32(payload[20:24])
	return int(w), int(h), nil
}

func toRGBA8(img image.Image) []byte {
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba.Pix
}
