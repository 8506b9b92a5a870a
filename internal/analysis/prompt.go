package analysis

// instruction is sent ahead of the image on every request.
const instruction = `You are a microbiologist analyzing microscope images. ` +
	`Analyze this image and respond ONLY with a JSON object in this exact format, no other text: ` +
	`{"microbeName": "scientific name", "classification": "type", "confidence": number between 0-1, ` +
	`"characteristics": ["feature1", "feature2"], "description": "brief description"}`
