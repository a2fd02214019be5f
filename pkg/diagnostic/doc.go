/*
Package diagnostic renders developer-facing error responses.

Malformed request bodies are answered with the original input echoed back and
a caret under the failing position:

	syntax_error. Please verify your input:
	<-- JSON -->
	{
	  "name": "ada",
	  "age": x
	        ^
	>> invalid character 'x' looking for beginning of value <<

	}
	</- JSON -->

Invalid arguments are answered with their message, and unmatched requests with
the full route table. These responses favor disclosure over opacity: they are
meant for integration work, not for hostile clients.
*/
package diagnostic
