package llm

const systemInstruction = `You read scanned pages of audited financial statements.
Answer only with JSON that matches the response schema. Never invent values.`

const classifyPrompt = `Classify this page.
Set is_balance_sheet when it shows the statement of financial position with asset and liability totals.
Set is_income_statement when it shows revenues and results for the period.
Set is_appendix for annexes, notes and supporting schedules.
Set rotation_degrees to the clockwise rotation needed to read the text upright.
Set each has_company_* flag when that item is printed on the page, and has_audit_report for auditor's report pages.`

// CompanyPrompt asks for the reporting company's identification.
const CompanyPrompt = `Identify the company these financial statements belong to.
Return the tax id (CUIT) with or without separators, the legal name, the registered address and the main activity.
Leave a field null when it is not printed on the pages.`
