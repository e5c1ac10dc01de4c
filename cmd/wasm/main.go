//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/defectscope/annotator/internal/annotation"
	"github.com/defectscope/annotator/internal/engine"
	"github.com/defectscope/annotator/internal/legend"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine(annotation.NewReducer())

	// Create the engine API object
	annotator := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	annotator.Set("setImage", js.FuncOf(setImage))
	annotator.Set("load", js.FuncOf(load))
	annotator.Set("dispatch", js.FuncOf(dispatch))

	// --- Queries (frontend ← engine) ---
	annotator.Set("render", js.FuncOf(render))
	annotator.Set("isDirty", js.FuncOf(isDirty))
	annotator.Set("getState", js.FuncOf(getState))
	annotator.Set("rects", js.FuncOf(rects))
	annotator.Set("legend", js.FuncOf(getLegend))

	// Register on global scope
	js.Global().Set("annotator", annotator)

	// Signal that WASM is ready
	js.Global().Set("annotatorWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(err error) js.Value {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func okResult() js.Value {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// --- Command Handlers ---

func setImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf(map[string]interface{}{"error": "usage: setImage(url, width, height)"})
	}
	eng.SetImage(args[0].String(), args[1].Int(), args[2].Int())
	return okResult()
}

func load(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing defects JSON"})
	}
	if err := eng.LoadDefects(args[0].String()); err != nil {
		return errorResult(err)
	}
	return okResult()
}

func dispatch(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing event JSON"})
	}
	if err := eng.Dispatch(args[0].String()); err != nil {
		return errorResult(err)
	}
	return okResult()
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	out, err := eng.Render()
	if err != nil {
		return "[]"
	}
	return out
}

func isDirty(this js.Value, args []js.Value) interface{} {
	return eng.Dirty()
}

func getState(this js.Value, args []js.Value) interface{} {
	out, err := eng.StateJSON()
	if err != nil {
		return "{}"
	}
	return out
}

func rects(this js.Value, args []js.Value) interface{} {
	out, err := eng.RectsJSON()
	if err != nil {
		return "[]"
	}
	return out
}

func getLegend(this js.Value, args []js.Value) interface{} {
	classes := legend.All()
	out := make([]interface{}, len(classes))
	for i, c := range classes {
		out[i] = map[string]interface{}{"id": int(c.ID), "color": c.Color, "name": c.Name}
	}
	return js.ValueOf(out)
}
