/*
Package repository resolves script repository file URIs.

The scripting host exposes a repository module to embedded scripts; its
only contract with the core is GetFileURI, which parses an entity uid of
the form "<id>@<version>" and maps it onto the HTTP path the hub serves
repository files from.
*/
package repository
