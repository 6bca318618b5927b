package service

// FallbackReply is returned when no text can be found in a response.
const FallbackReply = "I could not extract text from the model response."

// ExtractReply prefers output_text, then the first content entry of the
// first output item. ok is false when the fallback was used.
func ExtractReply(resp *Response) (text string, ok bool) {
	if resp == nil {
		return FallbackReply, false
	}
	if resp.OutputText != "" {
		return resp.OutputText, true
	}
	if len(resp.Output) > 0 && len(resp.Output[0].Content) > 0 {
		if t := resp.Output[0].Content[0].Text; t != nil && t.Value != "" {
			return t.Value, true
		}
	}
	return FallbackReply, false
}
