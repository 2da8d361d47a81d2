package intent

// Phrase tables backing the classifiers. All entries are matched against
// normalized (lowercased, whitespace-collapsed) text.

var pdfRequestPhrases = []string{
	// explicit pdf actions
	"create pdf", "make pdf", "generate pdf", "build pdf", "draft pdf",
	"write pdf", "produce pdf",
	// with articles
	"create a pdf", "make a pdf", "generate a pdf", "build a pdf",
	"draft a pdf", "write a pdf",
	// action + to/as + pdf
	"print to pdf", "export to pdf", "save as pdf", "save to pdf",
	"download pdf", "download as pdf", "convert to pdf", "turn into pdf",
	"change to pdf",
	// pdf + noun
	"pdf version", "pdf format", "pdf file", "pdf copy", "pdf document",
	// short imperatives
	"pdf", "pdf this", "pdf it", "pdf please", "pdf now", "pdf that",
	// question forms
	"can you pdf", "could you pdf", "will you pdf", "would you pdf",
	"please pdf",
	// generic file requests, which in practice mean pdf
	"create file", "make file", "generate file", "download file",
	"export file", "save file",
	"create a file", "make a file", "generate a file", "download a file",
	"export a file", "save a file",
	// positional variants
	"as pdf", "to pdf", "in pdf", "into pdf",
}

var resumeTerms = []string{"resume", "cv", "curriculum vitae"}

var coverLetterTerms = []string{
	"cover letter", "cover-letter", "coverletter", "application letter",
}

var reviewActions = []string{
	"review", "critique", "feedback", "look at", "check", "evaluate",
	"assess", "analyze", "improve", "suggestions", "advice", "help with",
	"tips", "enhance", "optimize", "fix", "better", "stronger",
	"thoughts on", "opinion on", "what do you think",
}

var reviewPhrases = []string{
	"review my resume", "review the resume", "look at my resume",
	"check my resume", "feedback on my resume", "thoughts on my resume",
	"help with my resume", "improve my resume", "make my resume better",
	"resume feedback", "resume review", "resume advice", "resume tips",
	"resume suggestions", "what do you think of my resume",
	"can you review", "could you review", "please review",
}

var adjustmentStarters = []string{"can you", "could you", "please", "update ", "change "}

var adjustmentKeywords = []string{
	"adjust", "tweak", "change", "revise", "rewrite", "shorter", "longer",
	"tone", "friendlier", "formal", "casual", "add", "include", "remove",
	"emphasize", "highlight", "focus on", "soften", "strengthen", "update",
	"polish", "human",
}

var intentVerbs = []string{
	"write", "draft", "create", "make", "generate", "prepare", "craft",
	"need", "want", "require", "update", "edit", "revise", "improve",
	"polish", "assist", "help", "put together",
}

var draftingVerbs = []string{"write", "draft", "create", "craft", "prepare", "generate"}

var negativeCoverPhrases = []string{
	"no cover letter", "without cover letter",
	"don't need a cover letter", "do not need a cover letter",
}

var negativeResumePhrases = []string{
	"no resume", "without resume",
	"don't need a resume", "do not need a resume",
}
