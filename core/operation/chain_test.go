package operation_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/artpar/opgate/core/operation"
	"github.com/artpar/opgate/pkg/envelope"
	"github.com/google/go-cmp/cmp"
)

func testTransport() *operation.Transport {
	return operation.NewTransport(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))
}

func TestRunChain_Order(t *testing.T) {
	var seen []string

	m1 := func(mc operation.MiddlewareCall) (operation.Values, error) {
		seen = append(seen, "m1")
		return mc.Next(operation.V("a", 1)), nil
	}
	m2 := func(mc operation.MiddlewareCall) (operation.Values, error) {
		seen = append(seen, "m2")
		a, ok := operation.Lookup[int](mc.Ctx, "a")
		if !ok {
			return operation.Values{}, errors.New("a not set")
		}
		return mc.Next(operation.V("b", a+1)), nil
	}

	got, err := operation.RunChain(context.Background(), testTransport(), []operation.Middleware{m1, m2})
	if err != nil {
		t.Fatalf("RunChain() error = %v", err)
	}

	if diff := cmp.Diff([]string{"m1", "m2"}, seen); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"a": 1, "b": 2}, got.Map()); diff != "" {
		t.Errorf("context mismatch (-want +got):\n%s", diff)
	}
}

func TestRunChain_ReversedOrderSeesNothing(t *testing.T) {
	var sawA bool

	setsA := func(mc operation.MiddlewareCall) (operation.Values, error) {
		return mc.Next(operation.V("a", 1)), nil
	}
	readsA := func(mc operation.MiddlewareCall) (operation.Values, error) {
		sawA = mc.Ctx.Has("a")
		return operation.Values{}, nil
	}

	got, err := operation.RunChain(context.Background(), testTransport(), []operation.Middleware{readsA, setsA})
	if err != nil {
		t.Fatalf("RunChain() error = %v", err)
	}
	if sawA {
		t.Error("readsA observed a key set by a later step")
	}
	if !got.Has("a") {
		t.Error("final context should contain a")
	}
}

func TestRunChain_NextMergesAndReturns(t *testing.T) {
	var afterFirst, afterSecond operation.Values

	mw := func(mc operation.MiddlewareCall) (operation.Values, error) {
		afterFirst = mc.Next(operation.V("a", 1))
		afterSecond = mc.Next(operation.V("a", 2, "b", 1))
		return operation.Values{}, nil
	}

	got, err := operation.RunChain(context.Background(), testTransport(), []operation.Middleware{
		operation.Set("base", true),
		mw,
	})
	if err != nil {
		t.Fatalf("RunChain() error = %v", err)
	}

	if diff := cmp.Diff(map[string]any{"base": true, "a": 1}, afterFirst.Map()); diff != "" {
		t.Errorf("first Next mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"base": true, "a": 2, "b": 1}, afterSecond.Map()); diff != "" {
		t.Errorf("second Next mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(afterSecond.Map(), got.Map()); diff != "" {
		t.Errorf("final mismatch (-want +got):\n%s", diff)
	}
}

func TestRunChain_ReturnedValuesMergedLast(t *testing.T) {
	mw := func(mc operation.MiddlewareCall) (operation.Values, error) {
		mc.Next(operation.V("a", "from-next", "b", "kept"))
		return operation.V("a", "from-return"), nil
	}

	got, err := operation.RunChain(context.Background(), testTransport(), []operation.Middleware{mw})
	if err != nil {
		t.Fatalf("RunChain() error = %v", err)
	}

	want := map[string]any{"a": "from-return", "b": "kept"}
	if diff := cmp.Diff(want, got.Map()); diff != "" {
		t.Errorf("context mismatch (-want +got):\n%s", diff)
	}
}

func TestRunChain_NoNextCall(t *testing.T) {
	noop := func(mc operation.MiddlewareCall) (operation.Values, error) {
		return operation.Values{}, nil
	}

	got, err := operation.RunChain(context.Background(), testTransport(), []operation.Middleware{operation.Set("a", 1), noop})
	if err != nil {
		t.Fatalf("RunChain() error = %v", err)
	}
	if !got.Has("a") {
		t.Error("a step that never calls Next must not erase earlier context")
	}
}

func TestRunChain_StopsOnError(t *testing.T) {
	boom := envelope.Unauthorized("")
	ranAfter := false

	failing := func(mc operation.MiddlewareCall) (operation.Values, error) {
		return operation.Values{}, boom
	}
	after := func(mc operation.MiddlewareCall) (operation.Values, error) {
		ranAfter = true
		return operation.Values{}, nil
	}

	_, err := operation.RunChain(context.Background(), testTransport(), []operation.Middleware{failing, after})
	if err == nil {
		t.Fatal("RunChain() error = nil, want error")
	}
	if ranAfter {
		t.Error("step after failure ran")
	}
	if he, ok := envelope.As(err); !ok || he != boom {
		t.Errorf("error = %v, want wrapped HTTPError", err)
	}
	if err.Error() != "middleware 0: 401 Authentication required" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRunChain_RetainedNextIsInert(t *testing.T) {
	var saved operation.NextFunc

	keep := func(mc operation.MiddlewareCall) (operation.Values, error) {
		saved = mc.Next
		return operation.Values{}, nil
	}
	late := func(mc operation.MiddlewareCall) (operation.Values, error) {
		saved(operation.V("late", true))
		return operation.Values{}, nil
	}

	got, err := operation.RunChain(context.Background(), testTransport(), []operation.Middleware{keep, late})
	if err != nil {
		t.Fatalf("RunChain() error = %v", err)
	}
	if got.Has("late") {
		t.Error("Next retained past its step should not change the context")
	}
}

func TestRunChain_Empty(t *testing.T) {
	got, err := operation.RunChain(context.Background(), testTransport(), nil)
	if err != nil {
		t.Fatalf("RunChain() error = %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Len())
	}
}
