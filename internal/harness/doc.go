// Package harness runs tables of tool-call cases against a tool server and
// classifies each exchange as pass or fail.
//
// Cases are loaded from YAML:
//
//	name: smoke
//	server:
//	  command: ./publish/server
//	  session: shared
//	defaults:
//	  timeout: 10s
//	cases:
//	  - name: lookup - known file
//	    tool: lookup
//	    arguments: {filePath: SimpleTestClass.cs}
//	    expect:
//	      contains: [SimpleTestClass]
//	    required: true
//	  - name: lookup - not found (error)
//	    tool: lookup
//	    arguments: {filePath: missing.txt}
//
// A case whose name mentions an error (see ExpectsError) must fail to pass;
// expect.status overrides the naming convention. The runner is sequential
// and every call is bounded, so a misbehaving server costs at most one
// timeout per case.
package harness
