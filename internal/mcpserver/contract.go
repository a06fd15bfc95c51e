package mcpserver

// BlockFormatContract describes the canonical editable block format that
// LLM consumers should follow when reading or hand-editing conversations.
const BlockFormatContract = `# Promptree Conversation Block Format

Every conversation exported for editing uses this plain-text block structure.

## Structure

` + "```" + `text
=== BEGIN CONVERSATION 42 ===
Subject: Short human-readable subject
Parent: 7
Links: 3, 15
--- PROMPT ---
The user prompt, verbatim. May span
multiple lines.
--- RESPONSE ---
The recorded LLM response, verbatim.
=== END CONVERSATION 42 ===
` + "```" + `

## Rules

1. **Begin/end markers are mandatory** and must carry the same conversation id.
2. **Header fields** (Subject, Parent, Links) sit between the begin marker and
   the PROMPT marker, one per line, in any order.
3. **Subject is required** and must be non-empty. Keep it short; subjects are
   the primary display name in listings and trees.
4. **Parent** is the id of the parent conversation, or ` + "`" + `none` + "`" + ` for a root.
   Changing it re-parents the conversation; moves that would create a cycle
   (a conversation becoming a descendant of itself) are rejected.
5. **Links** is a comma-separated list of conversation ids, or ` + "`" + `none` + "`" + `.
   Links are symmetric cross-references, independent of the parent/child tree.
   Self-links are rejected.
6. **Prompt and response bodies** are carried verbatim between the
   ` + "`" + `--- PROMPT ---` + "`" + ` and ` + "`" + `--- RESPONSE ---` + "`" + ` markers. Do not nest marker
   lines inside the bodies.
7. **Ids are never edited.** The begin/end markers identify the conversation;
   an id mismatch aborts the whole edit.
`
