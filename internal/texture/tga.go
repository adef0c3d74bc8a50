package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// TGA image types.
const (
	tgaTrueColor    = 2
	tgaGray         = 3
	tgaTrueColorRLE = 10
	tgaGrayRLE      = 11
)

const tgaHeaderSize = 18

var errTGATruncated = errors.New("tga: pixel data truncated")

type tgaHeader struct {
	idLength     int
	colorMapType byte
	imageType    byte
	width        int
	height       int
	bpp          int
	descriptor   byte
}

func (h tgaHeader) topToBottom() bool {
	return h.descriptor&0x20 != 0
}

func (h tgaHeader) gray() bool {
	return h.imageType == tgaGray || h.imageType == tgaGrayRLE
}

func (h tgaHeader) rle() bool {
	return h.imageType == tgaTrueColorRLE || h.imageType == tgaGrayRLE
}

// DecodeTGA decodes uncompressed and RLE-compressed true-color (24/32 bit)
// and grayscale (8 bit) TGA data. Bump and gloss maps are often grayscale.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < tgaHeaderSize {
		return nil, fmt.Errorf("tga: header too short (%d bytes)", len(data))
	}

	h := tgaHeader{
		idLength:     int(data[0]),
		colorMapType: data[1],
		imageType:    data[2],
		width:        int(data[12]) | int(data[13])<<8,
		height:       int(data[14]) | int(data[15])<<8,
		bpp:          int(data[16]),
		descriptor:   data[17],
	}

	if h.colorMapType != 0 {
		return nil, fmt.Errorf("tga: color-mapped images not supported")
	}
	switch h.imageType {
	case tgaTrueColor, tgaTrueColorRLE:
		if h.bpp != 24 && h.bpp != 32 {
			return nil, fmt.Errorf("tga: unsupported true-color depth %d", h.bpp)
		}
	case tgaGray, tgaGrayRLE:
		if h.bpp != 8 {
			return nil, fmt.Errorf("tga: unsupported grayscale depth %d", h.bpp)
		}
	default:
		return nil, fmt.Errorf("tga: unsupported image type %d", h.imageType)
	}

	offset := tgaHeaderSize + h.idLength
	if offset > len(data) {
		return nil, errTGATruncated
	}

	img := image.NewNRGBA(image.Rect(0, 0, h.width, h.height))
	d := tgaDecoder{h: h, img: img, src: data[offset:], bytesPerPixel: h.bpp / 8}

	var err error
	if h.rle() {
		err = d.decodeRLE()
	} else {
		err = d.decodeRaw()
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

type tgaDecoder struct {
	h             tgaHeader
	img           *image.NRGBA
	src           []byte
	pos           int
	bytesPerPixel int
}

// readPixel consumes one pixel from src. TGA stores BGR(A).
func (d *tgaDecoder) readPixel() (color.NRGBA, bool) {
	if d.pos+d.bytesPerPixel > len(d.src) {
		return color.NRGBA{}, false
	}
	p := d.src[d.pos : d.pos+d.bytesPerPixel]
	d.pos += d.bytesPerPixel

	if d.h.gray() {
		return color.NRGBA{R: p[0], G: p[0], B: p[0], A: 255}, true
	}
	c := color.NRGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if d.bytesPerPixel == 4 {
		c.A = p[3]
	}
	return c, true
}

// set writes the n-th pixel in file order.
func (d *tgaDecoder) set(n int, c color.NRGBA) {
	x := n % d.h.width
	y := n / d.h.width
	if !d.h.topToBottom() {
		y = d.h.height - 1 - y
	}
	d.img.SetNRGBA(x, y, c)
}

func (d *tgaDecoder) decodeRaw() error {
	total := d.h.width * d.h.height
	if len(d.src) < total*d.bytesPerPixel {
		return errTGATruncated
	}
	for n := 0; n < total; n++ {
		c, _ := d.readPixel()
		d.set(n, c)
	}
	return nil
}

func (d *tgaDecoder) decodeRLE() error {
	total := d.h.width * d.h.height
	n := 0
	for n < total {
		if d.pos >= len(d.src) {
			return errTGATruncated
		}
		packet := d.src[d.pos]
		d.pos++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			c, ok := d.readPixel()
			if !ok {
				return errTGATruncated
			}
			for i := 0; i < count && n < total; i++ {
				d.set(n, c)
				n++
			}
			continue
		}

		for i := 0; i < count && n < total; i++ {
			c, ok := d.readPixel()
			if !ok {
				return errTGATruncated
			}
			d.set(n, c)
			n++
		}
	}
	return nil
}
