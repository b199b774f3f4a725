// Package extract unpacks a template package archive into a project
// destination, parses its embedded manifest into a Template entity, and
// substitutes project-name placeholders in text files.
//
// The destination race between two concurrent extractions is resolved
// with an exclusive-create init marker (.devforge-init): exactly one
// caller observes "not yet existing" and proceeds; the loser receives a
// structured "already being initialized" error, reported distinctly from
// plain "already exists". On any failure the destination is rolled back —
// partial extraction must never leave a valid-looking devcontainer.json
// behind.
package extract
