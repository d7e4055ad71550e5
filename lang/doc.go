// Package lang implements botscript, a statically typed C-family scripting
// language embedded in a host program that exposes its own variables,
// functions, and classes to scripts.
//
// # Pipeline
//
// Source text passes through four stages:
//
//   - [Tokenize] scans tokens, including interpolated strings whose holes
//     carry their own token spans and format specifiers.
//   - [Parse] builds the syntax tree and rejects unreachable code and
//     non-void functions that can fall off their end.
//   - The binder resolves every name, overload, cast, and generic
//     instantiation against a [GlobalContext] and produces a separate bound
//     tree with fixed call targets.
//   - The evaluator walks the bound tree of one entry-point call.
//
// [LexAndParse] runs the first three stages and returns an immutable
// [Script]. [Script.Prepare] allocates its globals in a [RuntimeContext],
// and [Script.ExecuteFunction] or [Execute] calls an entry point.
//
// # Example
//
//	const int Limit = 3;
//	global int points = 0;
//
//	class Counter {
//	  int n;
//	  Counter(int start) { n = start; }
//	  int Next() => ++n;
//	}
//
//	T Max<T>(T a, T b) => a > b ? a : b;
//
//	int Main() {
//	  var c = new Counter(Limit);
//	  List<int> seen = new List<int> { 1, 2 };
//	  foreach (int x in seen) {
//	    points += Max(x, c.Next());
//	  }
//	  Print($"points: {points:N0}");
//	  return points;
//	}
//
// # Globals
//
// A global declared "global" shares the host variable of the same name and
// type when one is declared with [GlobalContext.DeclareVariable]; its
// initializer then never runs. "extern" globals must be declared by the
// host. "const" globals are read-only.
//
// # Errors
//
// Every error derives from one sentinel: [ErrLex], [ErrParse], and
// [ErrBinding] stop compilation; [ErrRuntime] ends the current call;
// [ErrAborted] reports a step budget overrun or a cancelled context;
// [ErrEntryPoint] reports a missing or mismatched entry point. Mutations made
// before a runtime fault persist in the RuntimeContext.
package lang
