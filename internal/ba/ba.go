/*
Copyright 2026 The Chainboot Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package ba defines the bootstrapper-application callback surface and the
// response-mask normalization spec.md §7 describes, without binding the
// engine to any concrete UI (spec.md §1 names the UI host as an out-of-scope
// collaborator). Grounded on
// original_source/src/burn/engine/userexperience.cpp's callback dispatch.
package ba

import "context"

// ResponseMask enumerates the allowed button sets a Host may present for a
// given prompt, per spec.md §7.
type ResponseMask int

// Response masks.
const (
	MaskOK ResponseMask = iota
	MaskOKCancel
	MaskRetryCancel
	MaskAbortRetryIgnore
	MaskYesNo
	MaskYesNoCancel
	MaskCancelTryContinue
	MaskRetryTryAgain
)

// Response is a normalized user (or BA-automated) response to a prompt.
type Response int

// Responses. Not every response is valid for every mask; Normalize maps a
// raw response onto the nearest response its mask actually allows.
const (
	ResponseNone Response = iota
	ResponseOK
	ResponseCancel
	ResponseRetry
	ResponseAbort
	ResponseIgnore
	ResponseYes
	ResponseNo
	ResponseTryAgain
	ResponseContinue
)

// allowed lists, per mask, the responses a Host is permitted to return.
var allowed = map[ResponseMask]map[Response]bool{
	MaskOK:                {ResponseOK: true},
	MaskOKCancel:          {ResponseOK: true, ResponseCancel: true},
	MaskRetryCancel:       {ResponseRetry: true, ResponseCancel: true},
	MaskAbortRetryIgnore:  {ResponseAbort: true, ResponseRetry: true, ResponseIgnore: true},
	MaskYesNo:             {ResponseYes: true, ResponseNo: true},
	MaskYesNoCancel:       {ResponseYes: true, ResponseNo: true, ResponseCancel: true},
	MaskCancelTryContinue: {ResponseCancel: true, ResponseTryAgain: true, ResponseContinue: true},
	MaskRetryTryAgain:     {ResponseRetry: true, ResponseTryAgain: true},
}

// Normalize maps resp onto the nearest response mask actually allows,
// favoring a cancel-shaped response when resp itself is not a member of
// mask (spec.md §7: "Responses are normalized to the mask before
// application").
func Normalize(mask ResponseMask, resp Response) Response {
	set, ok := allowed[mask]
	if !ok {
		return ResponseNone
	}
	if set[resp] {
		return resp
	}
	for _, fallback := range []Response{ResponseCancel, ResponseNo, ResponseAbort, ResponseRetry} {
		if set[fallback] {
			return fallback
		}
	}
	for r := range set {
		return r
	}
	return ResponseNone
}

// EventKind discriminates a progress/prompt callback (spec.md §7's "single
// BA callback").
type EventKind int

// Event kinds.
const (
	EventDetectPackage EventKind = iota
	EventPlanPackage
	EventExecutePackage
	EventProgress
	EventError
	EventRestartRequired
)

// Event is one callback invocation passed to a Host.
type Event struct {
	Kind       EventKind
	PackageID  string
	Message    string
	Code       int
	Mask       ResponseMask
	Progress   int // 0-100
	OverallPct int // 0-100
}

// Host is the interface the out-of-scope UI host satisfies (spec.md §1,
// §7). OnEvent returns the raw response the host chose; callers run it
// through Normalize before acting on it.
type Host interface {
	OnEvent(ctx context.Context, evt Event) Response
}

// NopHost always answers automatically in the affirmative, used for
// unattended (-quiet/-passive) runs (spec.md §6 "-quiet, -passive").
type NopHost struct{}

// affirmative is, per mask, the response that lets apply proceed without
// user interaction.
var affirmative = map[ResponseMask]Response{
	MaskOK:                ResponseOK,
	MaskOKCancel:          ResponseOK,
	MaskRetryCancel:       ResponseRetry,
	MaskAbortRetryIgnore:  ResponseIgnore,
	MaskYesNo:             ResponseYes,
	MaskYesNoCancel:       ResponseYes,
	MaskCancelTryContinue: ResponseContinue,
	MaskRetryTryAgain:     ResponseTryAgain,
}

// OnEvent implements Host by always returning the mask's affirmative
// response.
func (NopHost) OnEvent(_ context.Context, evt Event) Response {
	return affirmative[evt.Mask]
}
