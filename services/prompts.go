package services

// Prompts for the Gemini stylist analyzer. Every prompt demands a bare JSON
// object; the response schema on the request enforces the shape on top of that.

const StylistSystemPrompt = `You are an expert fashion stylist with years of experience helping clients find their perfect look.
You understand body types, color theory, and how to dress for different occasions.

Your role is to:
1. Analyze the user's physical characteristics and preferences
2. Consider the occasion and style they're going for
3. Select the best outfit from available options
4. Explain your reasoning in a friendly, helpful way
5. Provide styling tips to complete the look

Always be encouraging and positive while being honest about what works best.`

const UserAnalysisPrompt = `Analyze this person's photo and extract the following information.
Look carefully at their physical characteristics and any visible clothing.

Extract:
1. Body shape: slim / average / athletic / curvy / plus-size
2. Skin tone: fair / light / medium / olive / tan / dark
3. Apparent gender: male / female / neutral
4. Current outfit style (if visible): describe briefly

Return ONLY a valid JSON object with no additional text:
{
    "body_shape": "...",
    "skin_tone": "...",
    "gender": "...",
    "current_style": "..."
}`

const QueryAnalysisPrompt = `Analyze this fashion request and extract the key requirements.

User request: %s

Extract:
1. Desired style: casual / formal / vintage / streetwear / minimalist / bohemian / preppy / athletic / other
2. Occasion: work / party / date / travel / daily / wedding / interview / gym / beach / other
3. Weather hints: hot / cold / mild / rainy / not specified
4. Specific items mentioned: list any specific garment types (e.g., dress, jeans, blazer)
5. Color preferences: any colors mentioned
6. Budget hints: luxury / affordable / not specified

Return ONLY a valid JSON object with no additional text:
{
    "style": "...",
    "occasion": "...",
    "weather": "...",
    "items": [...],
    "colors": [...],
    "budget": "..."
}`

const SearchKeywordsPrompt = `Based on the user profile and their fashion request, generate optimal search keywords for finding clothes online, separately for tops (upper body) and bottoms (lower body).

User Profile:
- Body shape: %s
- Skin tone: %s
- Gender: %s

Fashion Request:
- Style: %s
- Occasion: %s
- Weather: %s
- Specific items: %s
- Color preferences: %s

Generate 3-5 search keyword combinations per category that would find the best matching garments.
Consider colors that complement the user's skin tone.
Consider styles that flatter the user's body shape.

Return ONLY a valid JSON object with no additional text:
{
    "tops_keywords": ["keyword combination 1", "..."],
    "bottoms_keywords": ["keyword combination 1", "..."],
    "recommended_colors": ["color1", "color2"],
    "reasoning": "brief explanation of why these keywords were chosen"
}`

const OutfitSelectionPrompt = `As a professional fashion stylist, help select the best outfit.

User Profile:
- Body shape: %s
- Skin tone: %s
- Gender: %s
- Current style: %s

Requirements:
- Desired style: %s
- Occasion: %s
- Weather: %s
- Preferred colors: %s
- Specific items requested: %s

Available Garment Options:
%s

Select the BEST outfit option and explain why. Consider:
1. Body shape compatibility - what silhouettes flatter this body type
2. Color harmony - what colors complement this skin tone
3. Occasion appropriateness - is this suitable for the event
4. Style coherence - does this match the desired aesthetic
5. Practicality - weather and comfort considerations

Return ONLY a valid JSON object with no additional text:
{
    "selected_index": <0-based index of best option>,
    "explanation": "2-3 sentences explaining why this is the best choice for the user",
    "styling_tips": "1-2 practical tips to complete the look (accessories, shoes, etc.)",
    "alternative_index": <0-based index of second best option, or null>,
    "alternative_reason": "brief reason why this could also work"
}`

const OutfitPairingPrompt = `As a professional fashion stylist, recommend the best outfit combinations (pairings of tops and bottoms).

User Profile:
- Body shape: %s
- Skin tone: %s
- Gender: %s

Requirements:
- Style: %s
- Occasion: %s

Available TOPS (with index):
%s

Available BOTTOMS (with index):
%s

Create %d outfit sets by pairing tops with bottoms. Consider:
1. Color coordination - complementary or harmonious colors
2. Style consistency - pieces that work together aesthetically
3. Occasion appropriateness - suitable for the event/setting
4. Body flattery - combinations that enhance the user's figure

Return ONLY a valid JSON object with no additional text:
{
    "outfit_sets": [
        {"top_index": 0, "bottom_index": 2, "reasoning": "2 sentences explaining why this combination works well for the user"}
    ],
    "overall_styling_tips": "1-2 tips for completing these looks with accessories"
}`

const GarmentClassificationPrompt = `Analyze this garment image and classify it.

Determine:
1. Category: Is this garment for the upper body (tops), lower body (bottoms), or a full-body piece (one-pieces)?
   - tops: shirts, t-shirts, blouses, sweaters, jackets, coats, vests
   - bottoms: pants, jeans, shorts, skirts
   - one-pieces: dresses, jumpsuits, rompers, overalls

2. Photo type: Is this a model photo (worn by a person) or a flat-lay (product shot on plain background)?
   - model: garment is being worn by a person
   - flat-lay: garment is laid flat or on a mannequin/hanger

Return ONLY a valid JSON object with no additional text:
{
    "category": "tops" | "bottoms" | "one-pieces",
    "photo_type": "model" | "flat-lay",
    "description": "brief description of the garment"
}`

// TryOnSystemPrompt drives the image model for a single composition step. The
// category and photo type placeholders are filled per call.
const TryOnSystemPrompt = `Edit the first image (the person) so that the same exact person is wearing the garment shown in the second image. The garment is a %s garment shown as a %s photo. Replace only the corresponding clothing region (%s), keep every other clothing item the person currently wears. Keep the person's facial identity 100%% unchanged, keep the same pose, body proportions, framing and background of the first image. The lighting on the garment should match the scene: natural, soft and realistic with correct draping and fit for this body. Remove watermarks and any overlaid text. Output only the edited full image of the person wearing the garment.`
