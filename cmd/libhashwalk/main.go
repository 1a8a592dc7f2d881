// Package main exports the hashwalk engine as a C shared library
// (go build -buildmode=c-shared). The exported surface mirrors the
// traditional hash-library ABI: result codes come back as uint32, operation
// identifiers travel as size_t handles owned by the caller, and every line
// returned by HashReadNextLogLine is a C allocation the caller must release
// exactly once via HashFree.
package main

/*
#include <stdbool.h>
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/jamesainslie/hashwalk/pkg/hashwalk/engine"
)

// lib is the process-wide engine instance behind the C surface.
var lib = engine.New(engine.Config{})

// guard converts a recovered panic into Exception so no Go panic ever
// unwinds across the C boundary.
func guard(f func() engine.Code) (code C.uint32_t) {
	defer func() {
		if r := recover(); r != nil {
			code = C.uint32_t(engine.Exception)
		}
	}()
	return C.uint32_t(f())
}

//export HashInit
func HashInit() C.uint32_t {
	return guard(lib.Init)
}

//export HashTerminate
func HashTerminate() C.uint32_t {
	return guard(lib.Terminate)
}

//export HashDirectory
func HashDirectory(path *C.char, id *C.size_t) C.uint32_t {
	if path == nil || id == nil {
		return C.uint32_t(engine.ArgumentNull)
	}
	p := C.GoString(path)
	opID := engine.OperationID(*id)
	return guard(func() engine.Code {
		return lib.HashDirectory(p, opID)
	})
}

//export HashStatus
func HashStatus(id C.size_t, running *C.bool) C.uint32_t {
	if running == nil {
		return C.uint32_t(engine.ArgumentNull)
	}

	var isRunning bool
	code := guard(func() engine.Code {
		var c engine.Code
		isRunning, c = lib.Status(engine.OperationID(id))
		return c
	})
	if code != C.uint32_t(engine.Ok) {
		return code
	}
	*running = C.bool(isRunning)
	return C.uint32_t(engine.Ok)
}

//export HashStop
func HashStop(id C.size_t) C.uint32_t {
	return guard(func() engine.Code {
		return lib.Stop(engine.OperationID(id))
	})
}

//export HashReadNextLogLine
func HashReadNextLogLine(out **C.char) C.uint32_t {
	if out == nil {
		return C.uint32_t(engine.ArgumentNull)
	}

	var line string
	code := guard(func() engine.Code {
		var c engine.Code
		line, c = lib.ReadNextLogLine()
		return c
	})
	if code != C.uint32_t(engine.Ok) {
		// Leave *out untouched on LogEmpty and every other failure.
		return code
	}

	cs := C.CString(line)
	if cs == nil {
		return C.uint32_t(engine.Memory)
	}
	*out = cs
	return C.uint32_t(engine.Ok)
}

//export HashFree
func HashFree(ptr unsafe.Pointer) {
	if ptr != nil {
		C.free(ptr)
	}
}

func main() {}
