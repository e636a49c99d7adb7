/*
Package keyschedule recovers the offset schedule hidden in the megacloud player
script and applies it to an encrypted payload.

# Scanning

The player script carries its key schedule as a dispatch table of case labels,
each assigning two locals from two other variables:

	case 0x1:x = C, y = D;

C and D are bound elsewhere in the script, usually through several aliases,
to hex or decimal literals:

	,C=0x3,E=0x1f,D=E

Scanner.Scan finds every such case, resolves both right-hand sides into integers
and returns the pairs in the order they appear in the script. Resolution is
bounded in depth and guarded against cycles; a pair whose expressions cannot be
resolved is dropped. If no pair survives, Scan fails with errs.ErrSchemaMismatch.

The case that assigns the passphrase variable is a decoy and is skipped by name.
The name is Scanner.PassphraseIdent, "partKey" by default. It mirrors the
current obfuscator output and will need updating if upstream renames it.

# Assembling

Assemble walks the schedule over the payload with a cursor that advances by
each pair's take length:

	start = cursor + skip
	end   = start + take

The characters in [start, end) are appended to the secret and removed from the
payload. Out-of-range reads are clamped and never panic. Embed is the inverse
operation and is mostly useful for building fixtures.

# Constant expressions

Minified players rebind short names in every function scope, so an
identifier resolves through its first usable binding: a literal, another
identifier, or a constant expression when an Evaluator is set. Calls and
function literals are skipped.

Some bindings are small arithmetic expressions rather than literals
(0x1f+-0x1d). Without an Evaluator the leading literal is used, but only when
the identifier has no usable binding. OttoEvaluator evaluates the expression
in a fresh otto VM with a deadline.
*/
package keyschedule
