package chains

import "google.golang.org/genai"

// CreateParseSchema returns the response schema for the input parser.
func CreateParseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"theme": {
				Type:        genai.TypeString,
				Description: "記事のテーマ・主旨（1文で要約）",
			},
			"audience": {
				Type:        genai.TypeString,
				Description: "想定読者（素材に明記されていなければ空文字）",
			},
			"goal": {
				Type:        genai.TypeString,
				Description: "記事の目的（素材に明記されていなければ空文字）",
			},
			"desired_length": {
				Type:        genai.TypeInteger,
				Description: "目標文字数（素材に明記されていなければ0）",
			},
			"key_points": {
				Type:        genai.TypeArray,
				Description: "記事に含めるべき重要ポイント",
				Items: &genai.Schema{
					Type: genai.TypeString,
				},
			},
			"interview_quotes": {
				Type:        genai.TypeArray,
				Description: "そのまま引用可能なインタビュー発言",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"speaker": {
							Type:        genai.TypeString,
							Description: "発言者の名前",
						},
						"quote": {
							Type:        genai.TypeString,
							Description: "発言内容",
						},
					},
					Required: []string{"speaker", "quote"},
				},
			},
			"data_facts": {
				Type:        genai.TypeArray,
				Description: "具体的な数値やデータ",
				Items: &genai.Schema{
					Type: genai.TypeString,
				},
			},
			"people": {
				Type:        genai.TypeArray,
				Description: "登場人物",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name": {
							Type:        genai.TypeString,
							Description: "名前",
						},
						"role": {
							Type:        genai.TypeString,
							Description: "役職・立場",
						},
					},
					Required: []string{"name", "role"},
				},
			},
			"keywords": {
				Type:        genai.TypeArray,
				Description: "検索に使えるキーワード（5-10個）",
				Items: &genai.Schema{
					Type: genai.TypeString,
				},
			},
			"missing_info": {
				Type:        genai.TypeArray,
				Description: "記事作成に不足していそうな情報",
				Items: &genai.Schema{
					Type: genai.TypeString,
				},
			},
		},
		Required: []string{"theme"},
	}
}

// CreateClassifySchema returns the response schema for category classification.
func CreateClassifySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"article_type": {
				Type:        genai.TypeString,
				Description: "記事タイプ",
				Enum:        []string{"ANNOUNCEMENT", "EVENT_REPORT", "INTERVIEW", "CULTURE"},
			},
			"confidence": {
				Type:        genai.TypeNumber,
				Description: "判定の確信度（0-1）",
			},
			"reason": {
				Type:        genai.TypeString,
				Description: "判定理由",
			},
			"suggested_headings": {
				Type:        genai.TypeArray,
				Description: "この記事タイプで推奨される見出し構成（2-4個）",
				Items: &genai.Schema{
					Type: genai.TypeString,
				},
			},
		},
		Required: []string{"article_type", "confidence", "reason", "suggested_headings"},
	}
}

// CreateStyleAnalysisSchema returns the response schema for style analysis.
func CreateStyleAnalysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"sentence_endings": {
				Type:        genai.TypeArray,
				Description: "よく使われる語尾パターン（例: 〜です、〜ですね、〜なんです）",
				Items: &genai.Schema{
					Type: genai.TypeString,
				},
			},
			"tone": {
				Type:        genai.TypeString,
				Description: "全体的なトーン（カジュアル/フォーマル/その中間）",
			},
			"first_person": {
				Type:        genai.TypeString,
				Description: "使われている一人称",
			},
			"notable_phrases": {
				Type:        genai.TypeArray,
				Description: "特徴的なフレーズや言い回し",
				Items: &genai.Schema{
					Type: genai.TypeString,
				},
			},
		},
		Required: []string{"sentence_endings", "tone", "first_person"},
	}
}

// CreateStructureAnalysisSchema returns the response schema for structure analysis.
func CreateStructureAnalysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"heading_patterns": {
				Type:        genai.TypeArray,
				Description: "よく使われる見出しパターン",
				Items: &genai.Schema{
					Type: genai.TypeString,
				},
			},
			"lead_patterns": {
				Type:        genai.TypeArray,
				Description: "リード文の書き方パターン",
				Items: &genai.Schema{
					Type: genai.TypeString,
				},
			},
			"closing_patterns": {
				Type:        genai.TypeArray,
				Description: "締めの文章パターン",
				Items: &genai.Schema{
					Type: genai.TypeString,
				},
			},
		},
		Required: []string{"heading_patterns", "lead_patterns", "closing_patterns"},
	}
}

// CreateOutlineSchema returns the response schema for outline generation.
func CreateOutlineSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"sections": {
				Type:        genai.TypeArray,
				Description: "見出し構成（2-4個）",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"level": {
							Type:        genai.TypeString,
							Description: "見出しレベル",
							Enum:        []string{"H2", "H3"},
						},
						"title": {
							Type:        genai.TypeString,
							Description: "見出しテキスト",
						},
						"content_summary": {
							Type:        genai.TypeString,
							Description: "このセクションで書く内容の概要",
						},
						"key_sources": {
							Type:        genai.TypeArray,
							Description: "含めるべき素材からの情報",
							Items: &genai.Schema{
								Type: genai.TypeString,
							},
						},
						"target_length": {
							Type:        genai.TypeInteger,
							Description: "このセクションの目標文字数",
						},
					},
					Required: []string{"level", "title", "content_summary"},
				},
			},
			"total_target_length": {
				Type:        genai.TypeInteger,
				Description: "本文全体の目標文字数",
			},
		},
		Required: []string{"sections"},
	}
}

// CreateTitlesSchema returns the response schema for title generation.
func CreateTitlesSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"titles": {
				Type:        genai.TypeArray,
				Description: "タイトル案（3つ、各30文字前後）",
				Items: &genai.Schema{
					Type: genai.TypeString,
				},
			},
		},
		Required: []string{"titles"},
	}
}

// CreateStyleCheckSchema returns the response schema for the style checker.
func CreateStyleCheckSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"consistency_score": {
				Type:        genai.TypeNumber,
				Description: "文体の一貫性スコア（0-1）",
			},
			"issues": {
				Type:        genai.TypeArray,
				Description: "検出された文体の問題",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"location": {
							Type:        genai.TypeString,
							Description: "問題のある箇所（リード文、本文N段落目など）",
						},
						"description": {
							Type:        genai.TypeString,
							Description: "問題の内容",
						},
						"severity": {
							Type:        genai.TypeString,
							Description: "深刻度",
							Enum:        []string{"low", "medium", "high"},
						},
					},
					Required: []string{"location", "description", "severity"},
				},
			},
			"corrected_sections": {
				Type:        genai.TypeArray,
				Description: "修正案",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"original": {
							Type:        genai.TypeString,
							Description: "元のテキスト",
						},
						"corrected": {
							Type:        genai.TypeString,
							Description: "修正後のテキスト",
						},
						"reason": {
							Type:        genai.TypeString,
							Description: "修正理由",
						},
					},
					Required: []string{"original", "corrected"},
				},
			},
		},
		Required: []string{"consistency_score"},
	}
}

// CreateRewriteSchema returns the response schema for the style rewriter.
func CreateRewriteSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"rewritten_text": {
				Type:        genai.TypeString,
				Description: "リライト後の記事テキスト（見出し構成は維持）",
			},
			"changes_made": {
				Type:        genai.TypeArray,
				Description: "実施した変更点",
				Items: &genai.Schema{
					Type: genai.TypeString,
				},
			},
		},
		Required: []string{"rewritten_text"},
	}
}

// CreateHallucinationSchema returns the response schema for hallucination detection.
func CreateHallucinationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"unverified_claims": {
				Type:        genai.TypeArray,
				Description: "入力素材で確認できなかった主張",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"claim": {
							Type:        genai.TypeString,
							Description: "記事中の主張（原文のまま）",
						},
						"reason": {
							Type:        genai.TypeString,
							Description: "確認できなかった理由",
						},
						"suggested_tag": {
							Type:        genai.TypeString,
							Description: "[要確認]タグに付ける短いラベル",
						},
					},
					Required: []string{"claim", "suggested_tag"},
				},
			},
			"confidence": {
				Type:        genai.TypeNumber,
				Description: "検証の信頼度（0-1）",
			},
		},
		Required: []string{"unverified_claims", "confidence"},
	}
}
