package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"serverless-user-api/internal/usecase/user"
)

// strictJSON is gin's JSON binding that also rejects anything after the first value.
var strictJSON binding.BindingBody = jsonBody{}

var errTrailingData = errors.New("request body must contain a single JSON value")

type jsonBody struct{}

func (jsonBody) Name() string {
	return "json"
}

func (b jsonBody) Bind(req *http.Request, obj any) error {
	if req == nil || req.Body == nil {
		return errors.New("invalid request")
	}
	return b.decode(req.Body, obj)
}

func (b jsonBody) BindBody(body []byte, obj any) error {
	return b.decode(bytes.NewReader(body), obj)
}

func (jsonBody) decode(r io.Reader, obj any) error {
	dec := json.NewDecoder(r)
	if binding.EnableDecoderUseNumber {
		dec.UseNumber()
	}
	if binding.EnableDecoderDisallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(obj); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	if binding.Validator == nil {
		return nil
	}
	return binding.Validator.ValidateStruct(obj)
}

var aliasesOnce sync.Once

// registerAliases makes the user field tags known to gin's validator.
func registerAliases() {
	aliasesOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			user.RegisterAliases(v)
		}
	})
}
