// Package libav opens network streams (RTSP first of all) with FFmpeg.
package libav

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
	"github.com/Hugo-Victorr/Streaming-RTSP/helpers/closuresignaler"
	"github.com/Hugo-Victorr/Streaming-RTSP/logger"
	"github.com/Hugo-Victorr/Streaming-RTSP/pool"
	"github.com/Hugo-Victorr/Streaming-RTSP/source"
	"github.com/Hugo-Victorr/Streaming-RTSP/urltools"
	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/davecgh/go-spew/spew"
	"github.com/xaionaro-go/unsafetools"
)

type Opener struct {
	Config Config
}

var _ source.Opener = (*Opener)(nil)

func NewOpener(cfg Config) *Opener {
	return &Opener{Config: cfg}
}

func (o *Opener) Open(
	ctx context.Context,
	urlString string,
) (_ret source.Resource, _err error) {
	logger.Debugf(ctx, "Open: %s", urlString)
	defer func() { logger.Debugf(ctx, "/Open: %s: %v", urlString, _err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	urlWithSecret, urlSafe, err := withCredentials(urlString, o.Config.Credentials)
	if err != nil {
		return nil, err
	}

	r := &Resource{
		URL:    urlSafe,
		closed: closuresignaler.New(),
		closer: astikit.NewCloser(),
		packetPool: pool.NewPool(
			astiav.AllocPacket,
			func(p *astiav.Packet) { p.Unref() },
			func(p *astiav.Packet) { p.Free() },
		),
	}
	if err := r.open(ctx, urlWithSecret, o.Config); err != nil {
		if closeErr := r.Close(); closeErr != nil {
			logger.Errorf(ctx, "unable to release the partially opened input: %v", closeErr)
		}
		return nil, err
	}
	return r, nil
}

func (r *Resource) open(
	ctx context.Context,
	urlWithSecret string,
	cfg Config,
) error {
	var formatName string
	dict := astiav.NewDictionary()
	r.closer.Add(dict.Free)
	if cfg.Transport != "" {
		dict.Set("rtsp_transport", cfg.Transport, 0)
	}
	if cfg.IOTimeout > 0 {
		dict.Set("timeout", strconv.FormatInt(cfg.IOTimeout.Microseconds(), 10), 0)
	}
	for _, opt := range cfg.CustomOptions {
		if opt.Key == "f" {
			formatName = opt.Value
			logger.Debugf(ctx, "overriding input format to '%s'", opt.Value)
			continue
		}
		logger.Debugf(ctx, "input.Dictionary['%s'] = '%s'", opt.Key, opt.Value)
		dict.Set(opt.Key, opt.Value, 0)
	}

	if formatName == "" {
		if u, err := url.Parse(r.URL); err == nil {
			formatName = urltools.FormatNameFromURL(u)
		}
	}
	var inputFormat *astiav.InputFormat
	if formatName != "" {
		inputFormat = astiav.FindInputFormat(formatName)
		if inputFormat == nil {
			logger.Errorf(ctx, "unable to find input format by name '%s'", formatName)
		} else {
			logger.Debugf(ctx, "using format '%s'", inputFormat.Name())
		}
	}

	r.FormatContext = astiav.AllocFormatContext()
	if r.FormatContext == nil {
		return fmt.Errorf("unable to allocate a format context")
	}
	r.closer.Add(r.FormatContext.Free)

	if err := r.FormatContext.OpenInput(urlWithSecret, inputFormat, dict); err != nil {
		return fmt.Errorf("unable to open input by URL '%s': %w", r.URL, err)
	}
	r.closer.Add(r.FormatContext.CloseInput)

	if err := r.FormatContext.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("unable to get stream info: %w", err)
	}

	for _, stream := range r.FormatContext.Streams() {
		logger.Debugf(ctx, "input stream #%d: %#+v", stream.Index(), spew.Sdump(unsafetools.FieldByNameInValue(reflect.ValueOf(stream.CodecParameters()), "c").Elem().Elem().Interface()))
		if r.Stream != nil || stream.CodecParameters().MediaType() != astiav.MediaTypeVideo {
			continue
		}
		if cfg.StreamIndex.IsSet() && cfg.StreamIndex.Get() != stream.Index() {
			continue
		}
		r.Stream = stream
	}
	if r.Stream == nil {
		return ErrNoVideoStream{URL: r.URL}
	}
	for _, stream := range r.FormatContext.Streams() {
		if stream.Index() != r.Stream.Index() {
			stream.SetDiscard(astiav.DiscardAll)
		}
	}

	codecParams := r.Stream.CodecParameters()
	codec := astiav.FindDecoder(codecParams.CodecID())
	if codec == nil {
		return fmt.Errorf("unable to find a decoder for codec %s", codecParams.CodecID())
	}
	r.CodecContext = astiav.AllocCodecContext(codec)
	if r.CodecContext == nil {
		return fmt.Errorf("unable to allocate a codec context for %s", codec.Name())
	}
	r.closer.Add(r.CodecContext.Free)

	if err := codecParams.ToCodecContext(r.CodecContext); err != nil {
		return fmt.Errorf("unable to copy the codec parameters: %w", err)
	}
	if err := r.CodecContext.Open(codec, nil); err != nil {
		return fmt.Errorf("unable to open the decoder %s: %w", codec.Name(), err)
	}

	r.geometry = frame.NewGeometry(r.CodecContext.Width(), r.CodecContext.Height(), frame.PixelFormatBGRA)
	if err := r.geometry.Validate(); err != nil {
		return fmt.Errorf("the stream reports an unusable picture size: %w", err)
	}

	r.decodedFrame = astiav.AllocFrame()
	r.closer.Add(r.decodedFrame.Free)

	r.scaledFrame = astiav.AllocFrame()
	r.closer.Add(r.scaledFrame.Free)
	r.scaledFrame.SetWidth(r.geometry.Width)
	r.scaledFrame.SetHeight(r.geometry.Height)
	r.scaledFrame.SetPixelFormat(astiav.PixelFormatBgra)
	if err := r.scaledFrame.AllocBuffer(1); err != nil {
		return fmt.Errorf("unable to allocate the conversion buffer: %w", err)
	}
	logger.Debugf(ctx, "opened %s: %s %s", r.URL, codec.Name(), r.geometry)
	return nil
}
