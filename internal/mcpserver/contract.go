package mcpserver

// LinkSyntaxURI is the resource describing the recognised link syntaxes.
const LinkSyntaxURI = "starlinks://link-syntax"

// LinkSyntax describes which links starlinks recognises in content pages,
// for LLM consumers that write or edit them.
const LinkSyntax = `# starlinks Link Syntax

Internal links point at other pages of the same documentation site by slug.
A slug is the page path under the content directory without its extension,
with a leading slash and the site base path: ` + "`" + `guides/setup.md` + "`" + ` is
` + "`" + `/guides/setup` + "`" + `. Index pages map to their directory. A ` + "`" + `slug` + "`" + `
front-matter field overrides the path-derived slug.

## Recognised forms

` + "```" + `markdown
[Setup guide](/guides/setup)              inline link
[Setup guide](/guides/setup#install)      inline link with a fragment
[setup]: /guides/setup "Optional title"   reference definition
<a href="/guides/setup">Setup</a>          HTML anchor
<LinkCard title="Setup" href="/guides/setup" />
<LinkButton href="/guides/setup">Setup</LinkButton>
` + "```" + `

Additional components and attributes may be configured per project.

## Rules

1. Links inside fenced code blocks, inline code and front matter are ignored.
2. Image links (` + "`" + `![alt](src)` + "`" + `) are not page links.
3. A fragment after ` + "`" + `#` + "`" + ` names a heading or an element ` + "`" + `id` + "`" + ` in the
   target page. Every page also has the ` + "`" + `_top` + "`" + ` fragment.
4. Heading fragments are lower-cased, punctuation is dropped and spaces become
   hyphens. Repeated headings get ` + "`" + `-1` + "`" + `, ` + "`" + `-2` + "`" + ` suffixes.
5. Files and directories starting with ` + "`" + `_` + "`" + ` and ` + "`" + `404` + "`" + ` pages are not
   linkable.
`
