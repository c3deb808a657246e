package normalizer

func buildNormalizePrompt(csvText string) string {
	return "I have the following CSV data exported from a bank statement:\n\n" +
		csvText + "\n\n" +
		"Convert this data into a JSON array of objects. Each object must have these fields:\n" +
		"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
		"- \"description\": string\n" +
		"- \"category\": string (infer the category from the description)\n" +
		"- \"type\": string, either \"income\" or \"expense\" (infer from the context)\n" +
		"- \"value\": number (positive)\n\n" +
		"Rules:\n" +
		"- Handle every entry in the CSV. Skip the header row.\n" +
		"- Return ONLY valid raw JSON.\n" +
		"- Do NOT wrap the response in code fences.\n" +
		"- Output must begin with \"[\" and end with \"]\".\n"
}
