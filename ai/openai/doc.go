// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package openai implements ai.Provider for OpenAI-compatible services.
//
// The same wire format is served by OpenAI, LM Studio and LocalAI, so one
// implementation covers all three; the vendor id only changes what
// ProviderID reports. Requests go straight to the REST endpoints because the
// chat stream is handed to callers unchanged and embedding responses carry
// the token usage the ingestion summary needs.
//
// # Usage
//
//	settings := ai.NewProviderSettings(
//	    ai.WithServiceID(ai.VendorOpenAI),
//	    ai.WithURL("https://api.openai.com"),
//	    ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    ai.WithEmbedding("/v1/embeddings"),
//	)
//	provider := openai.New(openai.WithVendor(settings.ServiceID))
//
//	result := provider.ChatCompletions(ctx, "gpt-4o-mini", messages, settings.URL, settings.APIKey, true)
//	if result.IsError() {
//	    return result.Err
//	}
//	defer result.Stream.Close()
//
//	embedding, err := provider.Embed(ctx, "sample text", "text-embedding-3-small", settings)
package openai
