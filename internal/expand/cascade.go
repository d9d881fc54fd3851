package expand

import (
	"fmt"

	"mpdviz/internal/dash"
	"mpdviz/internal/models"
)

// first returns the first non-nil value, in priority order.
func first[T any](values ...*T) (T, bool) {
	for _, v := range values {
		if v != nil {
			return *v, true
		}
	}
	var zero T
	return zero, false
}

func idOrPlaceholder(id *string) string {
	if id == nil || *id == "" {
		return models.NoID
	}
	return *id
}

// ResolveContentType reads the AdaptationSet's contentType. Only audio and video are accepted.
func ResolveContentType(sc models.Scope, as *dash.AdaptationSet) (models.ContentType, error) {
	if as.ContentType == nil {
		return "", sc.Fail(models.KindUnsupportedContentType, "contentType", nil)
	}
	switch ct := models.ContentType(*as.ContentType); ct {
	case models.Audio, models.Video:
		return ct, nil
	}
	return "", sc.Fail(models.KindUnsupportedContentType, "contentType", fmt.Errorf("%q is neither audio nor video", *as.ContentType))
}

// ResolveSignature resolves the descriptive attributes of rep, falling back
// to as for every field except width, height and bandwidth.
func (x *Expander) ResolveSignature(sc models.Scope, rep *dash.Representation, as *dash.AdaptationSet, ct models.ContentType) (models.Signature, error) {
	sig := models.Signature{ContentType: ct}

	var ok bool
	if sig.MimeType, ok = first(rep.MimeType, as.MimeType); !ok {
		return sig, sc.Fail(models.KindMissing, "mimeType", nil)
	}
	if sig.Codecs, ok = first(rep.Codecs, as.Codecs); !ok {
		return sig, sc.Fail(models.KindMissing, "codecs", nil)
	}

	switch ct {
	case models.Audio:
		if sig.AudioSamplingRate, ok = first(rep.AudioSamplingRate, as.AudioSamplingRate); !ok {
			return sig, sc.Fail(models.KindMissing, "audioSamplingRate", nil)
		}
		if rep.Bandwidth != nil {
			sig.Bandwidth = *rep.Bandwidth
		}
	case models.Video:
		if sig.FrameRate, ok = first(rep.FrameRate, as.FrameRate); !ok {
			return sig, sc.Fail(models.KindMissing, "frameRate", nil)
		}
		if rep.Width == nil {
			return sig, sc.Fail(models.KindMissing, "width", nil)
		}
		if rep.Height == nil {
			return sig, sc.Fail(models.KindMissing, "height", nil)
		}
		if rep.Bandwidth == nil {
			return sig, sc.Fail(models.KindMissing, "bandwidth", nil)
		}
		sig.Width, sig.Height, sig.Bandwidth = *rep.Width, *rep.Height, *rep.Bandwidth
	}

	x.tracef("  Representation %s: %s", sc.Representation, sig)
	return sig, nil
}
