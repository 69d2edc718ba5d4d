/*

Process of compilation

Program Text ->
	lex ->
Tokens (front.Lexeme) ->
	parse ->
Abstract Syntax Tree (ast) ->
	lower ->
Intermediate Representation (ir) ->
	translate ->
LLVM Module (back) ->
	emit ->
Textual IR | Binary Object (obj) ->
	link ->
Binary Executable

Each stage either completes or fails the whole compilation with StageError.

*/
package compiler
