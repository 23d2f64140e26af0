package diagnose

import (
	"encoding/base64"
	"errors"
	"io"

	"paddy-doctor/api/internal/util"
)

// Encode reads the whole upload and returns it base64-encoded.
func Encode(r io.Reader) (ClassificationRequest, error) {
	if r == nil {
		return ClassificationRequest{}, &EncodingError{Reason: "no image stream"}
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return ClassificationRequest{}, &EncodingError{Reason: "read failed", Err: err}
	}
	return EncodeBytes(b)
}

func EncodeBytes(b []byte) (ClassificationRequest, error) {
	if len(b) == 0 {
		return ClassificationRequest{}, &EncodingError{Reason: "empty image"}
	}
	mime := util.SniffImageMIME(b)
	if !util.IsAcceptedImageMIME(mime) {
		return ClassificationRequest{}, &EncodingError{
			Reason: "unsupported image type",
			Err:    errors.New(mime + " (need jpeg|png|gif)"),
		}
	}
	img := make([]byte, len(b))
	copy(img, b)
	return ClassificationRequest{
		ImageBytes: img,
		Encoded:    base64.StdEncoding.EncodeToString(img),
		MIME:       mime,
	}, nil
}

// EncodeBase64 accepts raw base64 or a data: URL, as the JSON API does.
func EncodeBase64(s string) (ClassificationRequest, error) {
	b, _, err := util.DecodeBase64MaybeDataURL(s)
	if err != nil {
		return ClassificationRequest{}, &EncodingError{Reason: "bad base64", Err: err}
	}
	return EncodeBytes(b)
}
